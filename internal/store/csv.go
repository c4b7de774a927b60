package store

import (
	"encoding/csv"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"
	"time"
)

// ImportCSV reads OHLCV rows from a CSV file into candles for one
// symbol and timeframe. The expected columns are
// timestamp,open,high,low,close,volume with an optional header row.
// Timestamps may be unix seconds, unix milliseconds or RFC 3339.
func ImportCSV(path, symbol string, tf Timeframe) ([]Candle, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open csv: %w", err)
	}
	defer f.Close()
	return parseCSV(f, symbol, tf)
}

func parseCSV(r io.Reader, symbol string, tf Timeframe) ([]Candle, error) {
	reader := csv.NewReader(r)
	reader.TrimLeadingSpace = true

	var candles []Candle
	line := 0
	for {
		record, err := reader.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("failed to read csv row: %w", err)
		}
		line++

		if len(record) < 6 {
			return nil, fmt.Errorf("csv row %d: expected 6 columns, got %d", line, len(record))
		}
		if line == 1 && isHeader(record) {
			continue
		}

		ts, err := parseTimestamp(record[0])
		if err != nil {
			return nil, fmt.Errorf("csv row %d: %w", line, err)
		}

		fields := make([]float64, 5)
		for i := 0; i < 5; i++ {
			v, err := strconv.ParseFloat(strings.TrimSpace(record[i+1]), 64)
			if err != nil {
				return nil, fmt.Errorf("csv row %d column %d: %w", line, i+2, err)
			}
			fields[i] = v
		}

		c := Candle{
			Symbol:    symbol,
			Timeframe: tf,
			OpenTime:  ts,
			Open:      fields[0],
			High:      fields[1],
			Low:       fields[2],
			Close:     fields[3],
			Volume:    fields[4],
		}
		if err := c.Validate(); err != nil {
			return nil, fmt.Errorf("csv row %d: %w", line, err)
		}
		candles = append(candles, c)
	}
	return candles, nil
}

func isHeader(record []string) bool {
	_, err := strconv.ParseFloat(strings.TrimSpace(record[1]), 64)
	return err != nil
}

func parseTimestamp(s string) (time.Time, error) {
	s = strings.TrimSpace(s)
	if n, err := strconv.ParseInt(s, 10, 64); err == nil {
		// Millisecond stamps are 13 digits for contemporary dates.
		if n > 1e12 {
			return time.UnixMilli(n).UTC(), nil
		}
		return time.Unix(n, 0).UTC(), nil
	}
	if t, err := time.Parse(time.RFC3339, s); err == nil {
		return t.UTC(), nil
	}
	return time.Time{}, fmt.Errorf("unparseable timestamp %q", s)
}
