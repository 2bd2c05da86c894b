// Package export encodes the record collection for download, as indented
// JSON or as a protobuf google.protobuf.ListValue of Structs.
package export

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"

	"google.golang.org/protobuf/proto"
	"google.golang.org/protobuf/types/known/structpb"

	"github.com/samirrijal/phonemap/internal/core/domain"
)

// ErrUnknownFormat is returned for a format other than JSON or Protobuf.
var ErrUnknownFormat = errors.New("unknown export format")

// Format describes one encoding.
type Format struct {
	Name        string
	ContentType string
	Ext         string
}

var (
	JSON     = Format{Name: "json", ContentType: "application/json", Ext: "json"}
	Protobuf = Format{Name: "protobuf", ContentType: "application/x-protobuf", Ext: "pb"}
)

// Lookup returns the format called name.
func Lookup(name string) (Format, error) {
	switch name {
	case JSON.Name:
		return JSON, nil
	case Protobuf.Name:
		return Protobuf, nil
	}
	return Format{}, fmt.Errorf("%w %q (want json or protobuf)", ErrUnknownFormat, name)
}

// Encode writes records to w in the named format.
func Encode(w io.Writer, records []domain.PhoneRecord, format string) error {
	f, err := Lookup(format)
	if err != nil {
		return err
	}
	if records == nil {
		records = []domain.PhoneRecord{}
	}

	if f == JSON {
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		return enc.Encode(records)
	}

	list, err := ToProto(records)
	if err != nil {
		return err
	}
	data, err := proto.Marshal(list)
	if err != nil {
		return fmt.Errorf("marshal records: %w", err)
	}
	_, err = w.Write(data)
	return err
}

// ToProto converts records to a ListValue of Structs keyed like the JSON payload.
func ToProto(records []domain.PhoneRecord) (*structpb.ListValue, error) {
	items := make([]interface{}, 0, len(records))
	for _, r := range records {
		items = append(items, map[string]interface{}{
			"id":          r.ID,
			"phoneNumber": r.PhoneNumber,
			"location":    r.Location,
			"lat":         r.Lat,
			"lng":         r.Lng,
			"timestamp":   r.Timestamp.UTC().Format("2006-01-02T15:04:05.000Z07:00"),
		})
	}
	return structpb.NewList(items)
}
