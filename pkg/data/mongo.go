package data

import (
	"context"
	"fmt"
	"math"
	"slices"
	"sort"
	"strconv"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
	"go.mongodb.org/mongo-driver/mongo/readpref"
)

// MongoSource reads every document of one collection.
type MongoSource struct {
	URI        string
	Database   string
	Collection string
	// Order lists the expected fields; they lead the frame's columns in this
	// order and any other fields follow sorted by name.
	Order   []string
	Timeout time.Duration
}

func (s MongoSource) Name() string { return "mongodb:" + s.Database + "." + s.Collection }

func (s MongoSource) Load(ctx context.Context) (*Frame, error) {
	timeout := s.Timeout
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	opts := options.Client().ApplyURI(s.URI).SetServerSelectionTimeout(timeout)
	client, err := mongo.Connect(ctx, opts)
	if err != nil {
		return nil, fmt.Errorf("data: connect mongodb: %w", err)
	}
	defer client.Disconnect(context.Background())

	if err := client.Ping(ctx, readpref.Primary()); err != nil {
		return nil, fmt.Errorf("data: ping mongodb: %w", err)
	}

	coll := client.Database(s.Database).Collection(s.Collection)
	cur, err := coll.Find(ctx, bson.M{}, options.Find().SetProjection(bson.M{"_id": 0}))
	if err != nil {
		return nil, fmt.Errorf("data: find %s: %w", s.Collection, err)
	}
	defer cur.Close(ctx)

	var docs []bson.M
	if err := cur.All(ctx, &docs); err != nil {
		return nil, fmt.Errorf("data: decode %s: %w", s.Collection, err)
	}
	records := make([]map[string]any, len(docs))
	for i, d := range docs {
		records[i] = d
	}
	f, err := FrameFromDocuments(records, s.Order)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", s.Name(), err)
	}
	return f, nil
}

// FrameFromDocuments flattens documents into a Frame. The `_id` field is dropped.
// Fields absent from a document become missing cells.
func FrameFromDocuments(docs []map[string]any, order []string) (*Frame, error) {
	if len(docs) == 0 {
		return nil, ErrEmpty
	}
	seen := map[string]bool{}
	for _, d := range docs {
		for k := range d {
			if k != "_id" {
				seen[k] = true
			}
		}
	}
	var cols []string
	for _, c := range order {
		if seen[c] && !slices.Contains(cols, c) {
			cols = append(cols, c)
		}
	}
	var extra []string
	for k := range seen {
		if !slices.Contains(cols, k) {
			extra = append(extra, k)
		}
	}
	sort.Strings(extra)
	cols = append(cols, extra...)

	f := &Frame{Columns: cols, Rows: make([][]string, len(docs))}
	for i, d := range docs {
		row := make([]string, len(cols))
		for j, c := range cols {
			row[j] = formatCell(d[c])
		}
		f.Rows[i] = row
	}
	return f, nil
}

func formatCell(v any) string {
	switch x := v.(type) {
	case nil:
		return ""
	case string:
		return x
	case float64:
		if math.IsNaN(x) {
			return ""
		}
		return strconv.FormatFloat(x, 'f', -1, 64)
	case float32:
		return strconv.FormatFloat(float64(x), 'f', -1, 32)
	case int:
		return strconv.Itoa(x)
	case int32:
		return strconv.FormatInt(int64(x), 10)
	case int64:
		return strconv.FormatInt(x, 10)
	case bool:
		if x {
			return "1"
		}
		return "0"
	case primitive.Decimal128:
		return x.String()
	case primitive.Null, primitive.Undefined:
		return ""
	default:
		return fmt.Sprint(x)
	}
}
