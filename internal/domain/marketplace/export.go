package marketplace

import (
	"bytes"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"strconv"
	"strings"
)

// Header spellings per logical export column, checked in order.
var exportHeaders = map[string][]string{
	"offer_id":   {"offer-id", "Offer Id", "offer_id", "offerId"},
	"ean":        {"ean", "EAN"},
	"title":      {"title", "Title", "product title"},
	"price":      {"price", "bundle-prices-price", "Price"},
	"fulfilment": {"fulfilment-method", "Fulfilment Method", "fulfilment_method"},
	"stock":      {"stock", "Stock amount", "stock_amount"},
}

// ParseOffersCSV reads the offers export. Unknown columns are ignored and
// missing ones default to empty or zero.
func ParseOffersCSV(data []byte) ([]Offer, error) {
	data = bytes.TrimPrefix(data, []byte("\xef\xbb\xbf"))
	r := csv.NewReader(bytes.NewReader(data))
	r.FieldsPerRecord = -1
	r.LazyQuotes = true
	r.TrimLeadingSpace = true

	header, err := r.Read()
	if errors.Is(err, io.EOF) {
		return []Offer{}, nil
	}
	if err != nil {
		return nil, fmt.Errorf("read export header: %w", err)
	}

	pos := make(map[string]int, len(header))
	for i, h := range header {
		h = strings.TrimSpace(h)
		if _, dup := pos[h]; !dup {
			pos[h] = i
		}
	}
	col := make(map[string]int, len(exportHeaders))
	for field, variants := range exportHeaders {
		col[field] = -1
		for _, v := range variants {
			if i, ok := pos[v]; ok {
				col[field] = i
				break
			}
		}
	}

	get := func(rec []string, field string) string {
		i := col[field]
		if i < 0 || i >= len(rec) {
			return ""
		}
		return strings.TrimSpace(rec[i])
	}

	out := []Offer{}
	for {
		rec, err := r.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("read export row: %w", err)
		}
		if len(rec) == 1 && strings.TrimSpace(rec[0]) == "" {
			continue
		}
		price, _ := strconv.ParseFloat(strings.ReplaceAll(get(rec, "price"), ",", "."), 64)
		stock, _ := strconv.Atoi(get(rec, "stock"))
		out = append(out, Offer{
			OfferID:          get(rec, "offer_id"),
			EAN:              get(rec, "ean"),
			Title:            get(rec, "title"),
			Price:            price,
			Stock:            stock,
			FulfilmentMethod: ParseFulfilment(get(rec, "fulfilment")),
		})
	}
	return out, nil
}
