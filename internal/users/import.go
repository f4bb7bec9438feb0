package users

import (
	"bufio"
	"encoding/csv"
	"encoding/json"
	"errors"
	"io"
	"strings"
)

// ParseRows reads a JSON array or a CSV file with an email header column
// (name, role and password are optional columns).
func ParseRows(r io.Reader) ([]Row, error) {
	br := bufio.NewReader(r)
	for {
		b, err := br.Peek(1)
		if err != nil {
			if errors.Is(err, io.EOF) {
				return nil, nil
			}
			return nil, err
		}
		switch b[0] {
		case ' ', '\t', '\r', '\n':
			_, _ = br.ReadByte()
			continue
		case '[':
			var rows []Row
			if err := json.NewDecoder(br).Decode(&rows); err != nil {
				return nil, err
			}
			return rows, nil
		}
		return parseCSV(br)
	}
}

func parseCSV(r io.Reader) ([]Row, error) {
	cr := csv.NewReader(r)
	cr.TrimLeadingSpace = true
	hdr, err := cr.Read()
	if err != nil {
		return nil, err
	}
	idx := map[string]int{}
	for i, h := range hdr {
		idx[strings.ToLower(strings.TrimSpace(h))] = i
	}
	if _, ok := idx["email"]; !ok {
		return nil, errors.New("missing column: email")
	}
	col := func(rec []string, name string) string {
		if i, ok := idx[name]; ok && i < len(rec) {
			return rec[i]
		}
		return ""
	}
	var rows []Row
	for {
		rec, err := cr.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, err
		}
		rows = append(rows, Row{
			Email:    col(rec, "email"),
			Name:     col(rec, "name"),
			Role:     strings.ToLower(col(rec, "role")),
			Password: col(rec, "password"),
		})
	}
	return rows, nil
}
