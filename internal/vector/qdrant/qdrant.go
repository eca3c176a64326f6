package qdrant

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	pb "github.com/qdrant/go-client/qdrant"
	"google.golang.org/grpc"
	"google.golang.org/grpc/credentials/insecure"

	"github.com/efebarandurmaz/castgraph/internal/observability"
	"github.com/efebarandurmaz/castgraph/internal/vector"
)

const backend = "qdrant"

// Payload keys reserved for document identity.
const (
	datasetKey   = "dataset"
	characterKey = "character"
)

// QdrantRepository implements vector.Repository using Qdrant's gRPC API.
type QdrantRepository struct {
	conn        *grpc.ClientConn
	points      pb.PointsClient
	collections pb.CollectionsClient
	service     pb.QdrantClient
	collection  string
	logger      *slog.Logger
	metrics     *observability.AnalysisMetrics
}

// NewQdrant creates a Qdrant-backed repository. The connection is lazy;
// call Ping or EnsureCollection to surface connectivity errors.
func NewQdrant(ctx context.Context, host string, port int, collection string, logger *slog.Logger) (*QdrantRepository, error) {
	if logger == nil {
		logger = slog.Default()
	}
	addr := fmt.Sprintf("%s:%d", host, port)
	conn, err := grpc.NewClient(addr, grpc.WithTransportCredentials(insecure.NewCredentials()))
	if err != nil {
		return nil, fmt.Errorf("qdrant connect: %w", err)
	}
	return &QdrantRepository{
		conn:        conn,
		points:      pb.NewPointsClient(conn),
		collections: pb.NewCollectionsClient(conn),
		service:     pb.NewQdrantClient(conn),
		collection:  collection,
		logger:      logger.With("component", "qdrant", "collection", collection),
		metrics:     observability.Metrics(),
	}, nil
}

// Ping calls the server's health endpoint.
func (r *QdrantRepository) Ping(ctx context.Context) error {
	_, err := r.service.HealthCheck(ctx, &pb.HealthCheckRequest{})
	return err
}

// EnsureCollection creates the collection with cosine distance unless it
// already exists.
func (r *QdrantRepository) EnsureCollection(ctx context.Context, size int) (err error) {
	ctx, done := r.observe(ctx, "ensure_collection")
	defer func() { done(0, err) }()

	exists, err := r.collections.CollectionExists(ctx, &pb.CollectionExistsRequest{CollectionName: r.collection})
	if err != nil {
		return fmt.Errorf("collection exists: %w", err)
	}
	if exists.GetResult().GetExists() {
		return nil
	}
	_, err = r.collections.Create(ctx, &pb.CreateCollection{
		CollectionName: r.collection,
		VectorsConfig: &pb.VectorsConfig{Config: &pb.VectorsConfig_Params{
			Params: &pb.VectorParams{Size: uint64(size), Distance: pb.Distance_Cosine},
		}},
	})
	if err != nil {
		return fmt.Errorf("create collection: %w", err)
	}
	r.logger.Info("collection created", "size", size)
	return nil
}

func (r *QdrantRepository) Upsert(ctx context.Context, docs []vector.Document) (err error) {
	ctx, done := r.observe(ctx, "upsert")
	defer func() { done(len(docs), err) }()

	points := make([]*pb.PointStruct, len(docs))
	for i, d := range docs {
		payload := map[string]*pb.Value{
			datasetKey:   {Kind: &pb.Value_StringValue{StringValue: d.Dataset}},
			characterKey: {Kind: &pb.Value_StringValue{StringValue: d.Character}},
		}
		for k, v := range d.Metadata {
			payload[k] = &pb.Value{Kind: &pb.Value_StringValue{StringValue: v}}
		}
		points[i] = &pb.PointStruct{
			Id:      &pb.PointId{PointIdOptions: &pb.PointId_Uuid{Uuid: d.ID}},
			Vectors: pb.NewVectors(d.Vector...),
			Payload: payload,
		}
	}

	wait := true
	_, err = r.points.Upsert(ctx, &pb.UpsertPoints{
		CollectionName: r.collection,
		Wait:           &wait,
		Points:         points,
	})
	return err
}

func (r *QdrantRepository) Search(ctx context.Context, vec []float32, topK int, dataset string) (out []vector.SearchResult, err error) {
	ctx, done := r.observe(ctx, "search")
	defer func() { done(len(out), err) }()

	req := &pb.SearchPoints{
		CollectionName: r.collection,
		Vector:         vec,
		Limit:          uint64(topK),
		WithPayload:    &pb.WithPayloadSelector{SelectorOptions: &pb.WithPayloadSelector_Enable{Enable: true}},
	}
	if dataset != "" {
		req.Filter = &pb.Filter{Must: []*pb.Condition{pb.NewMatch(datasetKey, dataset)}}
	}
	resp, err := r.points.Search(ctx, req)
	if err != nil {
		return nil, err
	}

	out = make([]vector.SearchResult, len(resp.Result))
	for i, pt := range resp.Result {
		res := vector.SearchResult{
			ID:       pt.Id.GetUuid(),
			Score:    pt.Score,
			Metadata: make(map[string]string),
		}
		for k, v := range pt.Payload {
			switch k {
			case datasetKey:
				res.Dataset = v.GetStringValue()
			case characterKey:
				res.Character = v.GetStringValue()
			default:
				res.Metadata[k] = v.GetStringValue()
			}
		}
		out[i] = res
	}
	return out, nil
}

func (r *QdrantRepository) Close() error {
	return r.conn.Close()
}

func (r *QdrantRepository) observe(ctx context.Context, op string) (context.Context, func(items int, err error)) {
	start := time.Now()
	ctx, span := observability.StartStoreSpan(ctx, backend, op)
	return ctx, func(items int, err error) {
		defer span.End()
		r.metrics.RecordStoreOp(backend, op, time.Since(start), err)
		if err != nil {
			observability.RecordError(span, err)
			r.logger.Error("store operation failed", "operation", op, "error", err)
			return
		}
		observability.RecordStoreResult(span, items)
	}
}

var _ vector.Repository = (*QdrantRepository)(nil)
