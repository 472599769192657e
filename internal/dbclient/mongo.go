package dbclient

import (
	"context"
	"encoding/json"
	"fmt"
	"sort"
	"strings"
	"time"

	"go.mongodb.org/mongo-driver/v2/bson"
	"go.mongodb.org/mongo-driver/v2/mongo"
	"go.mongodb.org/mongo-driver/v2/mongo/options"
	"go.uber.org/zap"

	"gedcom2csv/internal/domain"
	"gedcom2csv/internal/etl"
)

// mongoExporter writes one collection per category, one document per record.
// MongoDB offers no multi-collection transaction without a replica set, so
// a failed export may leave earlier collections written.
type mongoExporter struct {
	client *mongo.Client
	dbName string
	opts   ExportOptions
	log    *zap.Logger
}

func newMongoExporter(t *domain.ExportTarget, password string, opts ExportOptions) (*mongoExporter, error) {
	uri := buildMongoURI(t, password)
	dbName := t.Database
	if dbName == "" {
		dbName = databaseFromURI(uri)
	}

	logger := zap.L().Named("export").With(zap.String("driver", "mongodb"))
	// Mask password in URI for logging
	logURI := uri
	if password != "" {
		logURI = strings.ReplaceAll(logURI, password, "***")
	}
	logger.Debug("connecting", zap.String("uri", logURI), zap.String("database", dbName))

	client, err := mongo.Connect(options.Client().ApplyURI(uri))
	if err != nil {
		return nil, fmt.Errorf("connect mongo: %w", err)
	}
	return &mongoExporter{client: client, dbName: dbName, opts: opts, log: logger}, nil
}

// buildMongoURI uses Host as-is when it already is a connection string
// (filling an Atlas <password> placeholder), otherwise builds one from
// host, port and credentials.
func buildMongoURI(t *domain.ExportTarget, password string) string {
	if strings.HasPrefix(t.Host, "mongodb+srv://") || strings.HasPrefix(t.Host, "mongodb://") {
		uri := t.Host
		if password != "" {
			uri = strings.ReplaceAll(uri, "<password>", password)
			uri = strings.ReplaceAll(uri, "<db_password>", password)
		}
		return uri
	}

	port := t.Port
	if port == 0 {
		port = 27017
	}
	if t.Username != "" {
		return fmt.Sprintf("mongodb://%s:%s@%s:%d", t.Username, password, t.Host, port)
	}
	return fmt.Sprintf("mongodb://%s:%d", t.Host, port)
}

// databaseFromURI extracts the path of user:pass@host/DB_NAME?params,
// falling back to "gedcom".
func databaseFromURI(uri string) string {
	rest := uri
	for _, prefix := range []string{"mongodb+srv://", "mongodb://"} {
		if strings.HasPrefix(rest, prefix) {
			rest = rest[len(prefix):]
			break
		}
	}
	if at := strings.LastIndex(rest, "@"); at != -1 {
		rest = rest[at+1:]
	}
	if slash := strings.Index(rest, "/"); slash != -1 {
		path := rest[slash+1:]
		if q := strings.Index(path, "?"); q != -1 {
			path = path[:q]
		}
		if path != "" {
			return path
		}
	}
	return "gedcom"
}

func (m *mongoExporter) TestConnection(ctx context.Context) error {
	ctx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()
	return m.client.Ping(ctx, nil)
}

func (m *mongoExporter) Write(ctx context.Context, tables []*etl.Table) (int, error) {
	db := m.client.Database(m.dbName)
	written := 0
	for _, t := range tables {
		name := m.opts.TableName(t.Category)
		coll := db.Collection(name)
		if m.opts.Mode == etl.SyncReplace {
			if err := coll.Drop(ctx); err != nil {
				return written, fmt.Errorf("drop %s: %w", name, err)
			}
		}
		if len(t.Records) == 0 {
			continue
		}

		docs := make([]any, 0, len(t.Records))
		for _, r := range t.Records {
			docs = append(docs, recordDocument(r))
		}
		res, err := coll.InsertMany(ctx, docs)
		if err != nil {
			return written, fmt.Errorf("insert into %s: %w", name, err)
		}
		m.log.Debug("collection written", zap.String("collection", name), zap.Int("documents", len(res.InsertedIDs)))
		written += len(res.InsertedIDs)
	}
	return written, nil
}

// recordDocument converts a record into a BSON document with fields in
// byte order. Text stays a string; structured values keep their shape.
func recordDocument(r etl.Record) bson.D {
	keys := r.Keys()
	doc := make(bson.D, 0, len(keys))
	for _, k := range keys {
		doc = append(doc, bson.E{Key: k, Value: mongoValue(r.Data[k])})
	}
	return doc
}

func mongoValue(v etl.Value) any {
	switch v := v.(type) {
	case etl.Text:
		return string(v)
	case etl.Structured:
		return normalize(v.V)
	default:
		return nil
	}
}

// normalize turns decoded JSON numbers into BSON numbers.
func normalize(v any) any {
	switch v := v.(type) {
	case json.Number:
		if i, err := v.Int64(); err == nil {
			return i
		}
		if f, err := v.Float64(); err == nil {
			return f
		}
		return v.String()
	case []any:
		out := make([]any, len(v))
		for i, e := range v {
			out[i] = normalize(e)
		}
		return out
	case map[string]any:
		keys := make([]string, 0, len(v))
		for k := range v {
			keys = append(keys, k)
		}
		sort.Strings(keys)
		out := make(bson.D, 0, len(v))
		for _, k := range keys {
			out = append(out, bson.E{Key: k, Value: normalize(v[k])})
		}
		return out
	default:
		return v
	}
}

func (m *mongoExporter) Close() error {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	return m.client.Disconnect(ctx)
}
