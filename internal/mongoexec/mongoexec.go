// Copyright (c) 2025 Vendorbridge
// Licensed under the MIT License. See LICENSE file in the project root for details.

// Package mongoexec runs MongoDB vendor operations on a connected client.
// Parameters arrive as decoded JSON and are converted to BSON through
// extended JSON; results are converted back to relaxed extended JSON so
// ObjectIDs and dates survive the trip to the orchestrator.
package mongoexec

import (
	"context"
	"fmt"
	"strconv"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"vendorbridge/cli/internal/errors"
	"vendorbridge/cli/internal/logging"
	"vendorbridge/cli/internal/operation"
)

// Group names the operation set in error messages.
const Group = "MongoDB"

const defaultFindLimit = 10

// Target is what every MongoDB operation runs against.
type Target struct {
	Client   *mongo.Client
	DB       *mongo.Database
	Identity string
}

// Operations is the MongoDB operation table.
var Operations = operation.Table[Target]{
	"connect": connect,

	"listDatabases":         listDatabases,
	"listCollections":       listCollections,
	"collectionSchema":      collectionSchema,
	"collectionStorageSize": collectionStorageSize,
	"dbStats":               dbStats,
	"explain":               explain,
	"logs":                  logs,

	"find":        find,
	"count":       count,
	"aggregate":   aggregate,
	"listIndexes": listIndexes,
	"export":      export,

	"insertMany":       insertMany,
	"createIndex":      createIndex,
	"createCollection": createCollection,

	"updateMany":       updateMany,
	"renameCollection": renameCollection,

	"deleteMany":     deleteMany,
	"dropCollection": dropCollection,
	"dropDatabase":   dropDatabase,
}

// Execute runs op against client. The catalog is parameters.database when
// given, otherwise defaultCatalog.
func Execute(ctx context.Context, client *mongo.Client, identity, defaultCatalog, op string, p operation.Params) (any, error) {
	h, err := Operations.Lookup(Group, op)
	if err != nil {
		return nil, err
	}
	target := Target{
		Client:   client,
		DB:       client.Database(p.StringOr("database", defaultCatalog)),
		Identity: identity,
	}
	return h(ctx, target, p)
}

func collection(t Target, p operation.Params) (*mongo.Collection, error) {
	name, err := p.RequireString("collection")
	if err != nil {
		return nil, err
	}
	return t.DB.Collection(name), nil
}

func failed(op string, err error) error {
	return errors.Wrap(errors.VendorExecution, op, err)
}

func connect(_ context.Context, t Target, _ operation.Params) (any, error) {
	return map[string]any{"connected": true, "connectionString": logging.Mask(t.Identity)}, nil
}

func listDatabases(ctx context.Context, t Target, _ operation.Params) (any, error) {
	names, err := t.Client.ListDatabaseNames(ctx, bson.D{})
	if err != nil {
		return nil, failed("listDatabases", err)
	}
	return map[string]any{"databases": names}, nil
}

func listCollections(ctx context.Context, t Target, _ operation.Params) (any, error) {
	names, err := t.DB.ListCollectionNames(ctx, bson.D{})
	if err != nil {
		return nil, failed("listCollections", err)
	}
	return map[string]any{"collections": names}, nil
}

func collectionSchema(ctx context.Context, t Target, p operation.Params) (any, error) {
	coll, err := collection(t, p)
	if err != nil {
		return nil, err
	}
	cur, err := coll.Find(ctx, bson.D{}, options.Find().SetLimit(operation.SchemaSampleSize))
	if err != nil {
		return nil, failed("collectionSchema", err)
	}
	var docs []bson.M
	if err := cur.All(ctx, &docs); err != nil {
		return nil, failed("collectionSchema", err)
	}
	recs, err := records(docs, false)
	if err != nil {
		return nil, failed("collectionSchema", err)
	}
	return map[string]any{"schema": operation.InferSchema(recs)}, nil
}

func collectionStorageSize(ctx context.Context, t Target, p operation.Params) (any, error) {
	name, err := p.RequireString("collection")
	if err != nil {
		return nil, err
	}
	var stats bson.M
	if err := t.DB.RunCommand(ctx, bson.D{{Key: "collStats", Value: name}}).Decode(&stats); err != nil {
		return nil, failed("Failed to get collection storage size", err)
	}
	out, err := normalize(bson.M{
		"storageSize": stats["storageSize"],
		"size":        stats["size"],
		"count":       stats["count"],
	}, false)
	if err != nil {
		return nil, failed("collectionStorageSize", err)
	}
	return out, nil
}

func dbStats(ctx context.Context, t Target, _ operation.Params) (any, error) {
	var stats bson.M
	if err := t.DB.RunCommand(ctx, bson.D{{Key: "dbStats", Value: 1}}).Decode(&stats); err != nil {
		return nil, failed("dbStats", err)
	}
	out, err := normalize(stats, false)
	if err != nil {
		return nil, failed("dbStats", err)
	}
	return map[string]any{"stats": out}, nil
}

// explainCommand builds the explain command for the first entry of the
// "method" parameter ({name: find|aggregate|count, ...}).
func explainCommand(coll string, p operation.Params) (bson.D, error) {
	methods := p.Slice("method")
	if len(methods) == 0 {
		return nil, errors.New(errors.VendorExecution, "missing required parameter \"method\"")
	}
	m, _ := methods[0].(map[string]any)
	method := operation.Params(m)

	var inner bson.D
	switch method.String("name") {
	case "find":
		filter, err := document(method["filter"])
		if err != nil {
			return nil, err
		}
		inner = bson.D{{Key: "find", Value: coll}, {Key: "filter", Value: filter}}
	case "aggregate":
		pipeline, err := array(method["pipeline"])
		if err != nil {
			return nil, err
		}
		inner = bson.D{{Key: "aggregate", Value: coll}, {Key: "pipeline", Value: pipeline}, {Key: "cursor", Value: bson.D{}}}
	case "count":
		query, err := document(method["query"])
		if err != nil {
			return nil, err
		}
		inner = bson.D{{Key: "find", Value: coll}, {Key: "filter", Value: query}}
	default:
		return nil, errors.New(errors.VendorExecution, "Unsupported explain method")
	}
	return bson.D{{Key: "explain", Value: inner}, {Key: "verbosity", Value: "queryPlanner"}}, nil
}

func explain(ctx context.Context, t Target, p operation.Params) (any, error) {
	name, err := p.RequireString("collection")
	if err != nil {
		return nil, err
	}
	cmd, err := explainCommand(name, p)
	if err != nil {
		return nil, err
	}
	var plan bson.M
	if err := t.DB.RunCommand(ctx, cmd).Decode(&plan); err != nil {
		return nil, failed("explain", err)
	}
	return normalize(plan, false)
}

func logs(ctx context.Context, t Target, p operation.Params) (any, error) {
	var out struct {
		Log []string `bson:"log"`
	}
	cmd := bson.D{{Key: "getLog", Value: p.StringOr("type", "global")}}
	if err := t.Client.Database("admin").RunCommand(ctx, cmd).Decode(&out); err != nil {
		return map[string]any{
			"logs": []string{},
			"note": "Log access may require elevated privileges",
		}, nil
	}
	return map[string]any{"logs": tail(out.Log, p.Int("limit", 50))}, nil
}

func tail(lines []string, n int) []string {
	if lines == nil {
		return []string{}
	}
	if n <= 0 || n >= len(lines) {
		return lines
	}
	return lines[len(lines)-n:]
}

func find(ctx context.Context, t Target, p operation.Params) (any, error) {
	coll, err := collection(t, p)
	if err != nil {
		return nil, err
	}
	filter, err := document(p["filter"])
	if err != nil {
		return nil, err
	}
	opts, err := findOptions(p)
	if err != nil {
		return nil, err
	}
	cur, err := coll.Find(ctx, filter, opts)
	if err != nil {
		return nil, failed("find", err)
	}
	var docs []bson.M
	if err := cur.All(ctx, &docs); err != nil {
		return nil, failed("find", err)
	}
	recs, err := records(docs, false)
	if err != nil {
		return nil, failed("find", err)
	}
	return map[string]any{"documents": recs, "count": len(recs)}, nil
}

// findOptions applies projection, sort and limit. A zero limit means no limit.
func findOptions(p operation.Params) (*options.FindOptions, error) {
	opts := options.Find()
	if p.Has("projection") {
		proj, err := document(p["projection"])
		if err != nil {
			return nil, err
		}
		opts.SetProjection(proj)
	}
	if p.Has("sort") {
		sort, err := document(p["sort"])
		if err != nil {
			return nil, err
		}
		opts.SetSort(sort)
	}
	if limit := p.Int("limit", defaultFindLimit); limit > 0 {
		opts.SetLimit(int64(limit))
	}
	return opts, nil
}

func count(ctx context.Context, t Target, p operation.Params) (any, error) {
	coll, err := collection(t, p)
	if err != nil {
		return nil, err
	}
	query, err := document(p["query"])
	if err != nil {
		return nil, err
	}
	n, err := coll.CountDocuments(ctx, query)
	if err != nil {
		return nil, failed("count", err)
	}
	return map[string]any{"count": n}, nil
}

func runPipeline(ctx context.Context, coll *mongo.Collection, raw any) ([]bson.M, error) {
	pipeline, err := array(raw)
	if err != nil {
		return nil, err
	}
	cur, err := coll.Aggregate(ctx, pipeline)
	if err != nil {
		return nil, err
	}
	var docs []bson.M
	if err := cur.All(ctx, &docs); err != nil {
		return nil, err
	}
	return docs, nil
}

func aggregate(ctx context.Context, t Target, p operation.Params) (any, error) {
	coll, err := collection(t, p)
	if err != nil {
		return nil, err
	}
	docs, err := runPipeline(ctx, coll, p["pipeline"])
	if err != nil {
		return nil, failed("aggregate", err)
	}
	recs, err := records(docs, false)
	if err != nil {
		return nil, failed("aggregate", err)
	}
	return map[string]any{"results": recs, "count": len(recs)}, nil
}

func listIndexes(ctx context.Context, t Target, p operation.Params) (any, error) {
	coll, err := collection(t, p)
	if err != nil {
		return nil, err
	}
	cur, err := coll.Indexes().List(ctx)
	if err != nil {
		return nil, failed("listIndexes", err)
	}
	var docs []bson.M
	if err := cur.All(ctx, &docs); err != nil {
		return nil, failed("listIndexes", err)
	}
	recs, err := records(docs, false)
	if err != nil {
		return nil, failed("listIndexes", err)
	}
	return map[string]any{"indexes": recs}, nil
}

func export(ctx context.Context, t Target, p operation.Params) (any, error) {
	coll, err := collection(t, p)
	if err != nil {
		return nil, err
	}
	format := p.StringOr("jsonExportFormat", "relaxed")

	targets := p.Slice("exportTarget")
	if len(targets) == 0 {
		return nil, errors.New(errors.VendorExecution, "missing required parameter \"exportTarget\"")
	}
	m, _ := targets[0].(map[string]any)
	target := operation.Params(m)

	var docs []bson.M
	switch target.String("name") {
	case "find":
		filter, err := document(target["filter"])
		if err != nil {
			return nil, err
		}
		cur, err := coll.Find(ctx, filter)
		if err != nil {
			return nil, failed("export", err)
		}
		if err := cur.All(ctx, &docs); err != nil {
			return nil, failed("export", err)
		}
	case "aggregate":
		docs, err = runPipeline(ctx, coll, target["pipeline"])
		if err != nil {
			return nil, failed("export", err)
		}
	}

	recs, err := records(docs, format == "canonical")
	if err != nil {
		return nil, failed("export", err)
	}
	return map[string]any{"exportedDocuments": recs, "count": len(recs), "format": format}, nil
}

func insertMany(ctx context.Context, t Target, p operation.Params) (any, error) {
	coll, err := collection(t, p)
	if err != nil {
		return nil, err
	}
	docs, err := array(p["documents"])
	if err != nil {
		return nil, err
	}
	if len(docs) == 0 {
		return nil, errors.New(errors.VendorExecution, "insertMany requires at least one document")
	}
	res, err := coll.InsertMany(ctx, []any(docs))
	if err != nil {
		return nil, failed("insertMany", err)
	}
	ids := make(map[string]any, len(res.InsertedIDs))
	for i, id := range res.InsertedIDs {
		v, err := normalize(id, false)
		if err != nil {
			return nil, failed("insertMany", err)
		}
		ids[strconv.Itoa(i)] = v
	}
	return map[string]any{
		"insertedIds":   ids,
		"insertedCount": len(res.InsertedIDs),
		"acknowledged":  true,
	}, nil
}

func createIndex(ctx context.Context, t Target, p operation.Params) (any, error) {
	coll, err := collection(t, p)
	if err != nil {
		return nil, err
	}
	keys, err := document(p["keys"])
	if err != nil {
		return nil, err
	}
	if len(keys) == 0 {
		return nil, errors.New(errors.VendorExecution, "missing required parameter \"keys\"")
	}
	model := mongo.IndexModel{Keys: keys}
	if name := p.String("name"); name != "" {
		model.Options = options.Index().SetName(name)
	}
	name, err := coll.Indexes().CreateOne(ctx, model)
	if err != nil {
		return nil, failed("createIndex", err)
	}
	return map[string]any{"indexName": name}, nil
}

func createCollection(ctx context.Context, t Target, p operation.Params) (any, error) {
	name, err := p.RequireString("collection")
	if err != nil {
		return nil, err
	}
	if err := t.DB.CreateCollection(ctx, name); err != nil {
		return nil, failed("createCollection", err)
	}
	return map[string]any{"name": name, "acknowledged": true}, nil
}

func updateMany(ctx context.Context, t Target, p operation.Params) (any, error) {
	coll, err := collection(t, p)
	if err != nil {
		return nil, err
	}
	filter, err := document(p["filter"])
	if err != nil {
		return nil, err
	}
	if !p.Has("update") {
		return nil, errors.New(errors.VendorExecution, "missing required parameter \"update\"")
	}
	update, err := decode(p["update"])
	if err != nil {
		return nil, err
	}
	res, err := coll.UpdateMany(ctx, filter, update, options.Update().SetUpsert(p.Bool("upsert", false)))
	if err != nil {
		return nil, failed("updateMany", err)
	}
	var upserted any
	if res.UpsertedID != nil {
		if upserted, err = normalize(res.UpsertedID, false); err != nil {
			return nil, failed("updateMany", err)
		}
	}
	return map[string]any{
		"matchedCount":  res.MatchedCount,
		"modifiedCount": res.ModifiedCount,
		"acknowledged":  true,
		"upsertedId":    upserted,
	}, nil
}

// renameCommand builds the admin renameCollection command.
func renameCommand(db, from, to string, dropTarget bool) bson.D {
	return bson.D{
		{Key: "renameCollection", Value: fmt.Sprintf("%s.%s", db, from)},
		{Key: "to", Value: fmt.Sprintf("%s.%s", db, to)},
		{Key: "dropTarget", Value: dropTarget},
	}
}

func renameCollection(ctx context.Context, t Target, p operation.Params) (any, error) {
	from, err := p.RequireString("collection")
	if err != nil {
		return nil, err
	}
	to, err := p.RequireString("newName")
	if err != nil {
		return nil, err
	}
	cmd := renameCommand(t.DB.Name(), from, to, p.Bool("dropTarget", false))
	if err := t.Client.Database("admin").RunCommand(ctx, cmd).Err(); err != nil {
		return nil, failed("renameCollection", err)
	}
	return map[string]any{"acknowledged": true}, nil
}

func deleteMany(ctx context.Context, t Target, p operation.Params) (any, error) {
	coll, err := collection(t, p)
	if err != nil {
		return nil, err
	}
	filter, err := document(p["filter"])
	if err != nil {
		return nil, err
	}
	res, err := coll.DeleteMany(ctx, filter)
	if err != nil {
		return nil, failed("deleteMany", err)
	}
	return map[string]any{"deletedCount": res.DeletedCount, "acknowledged": true}, nil
}

func dropCollection(ctx context.Context, t Target, p operation.Params) (any, error) {
	coll, err := collection(t, p)
	if err != nil {
		return nil, err
	}
	if err := coll.Drop(ctx); err != nil {
		return nil, failed("dropCollection", err)
	}
	return map[string]any{"acknowledged": true}, nil
}

func dropDatabase(ctx context.Context, t Target, _ operation.Params) (any, error) {
	if err := t.DB.Drop(ctx); err != nil {
		return nil, failed("dropDatabase", err)
	}
	return map[string]any{"acknowledged": true}, nil
}
