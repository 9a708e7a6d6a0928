package mongodb

import (
	"context"
	"errors"
	"fmt"
	"reflect"
	"regexp"
	"strings"
	"time"

	"github.com/davicafu/postlab/internal/post/domain"
	sharedDomain "github.com/davicafu/postlab/internal/shared/domain"
	sharedMongo "github.com/davicafu/postlab/internal/shared/infra/platform/db/mongodb"
	"github.com/davicafu/postlab/internal/shared/platform/pagination"

	"github.com/google/uuid"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
	"go.mongodb.org/mongo-driver/mongo/readpref"
)

// Campos neutrales -> claves BSON.
var fieldKeys = map[string]string{
	domain.FieldID:          "_id",
	domain.FieldAuthorID:    "authorId",
	domain.FieldCategoryID:  "categoryId",
	domain.FieldTitle:       "title",
	domain.FieldDescription: "description",
	domain.FieldBody:        "body",
	domain.FieldCreatedAt:   "createdAt",
	domain.FieldUpdatedAt:   "updatedAt",
}

// PostRepoMongoDB implementa la interfaz PostRepository para MongoDB.
type PostRepoMongoDB struct {
	client       *mongo.Client
	postsColl    *mongo.Collection
	outboxColl   *mongo.Collection
	countersColl *mongo.Collection
}

func NewPostRepoMongoDB(ctx context.Context, client *mongo.Client, dbName string) (*PostRepoMongoDB, error) {
	if err := client.Ping(ctx, readpref.Primary()); err != nil {
		return nil, fmt.Errorf("could not ping mongoDB: %w", err)
	}

	db := client.Database(dbName)
	return &PostRepoMongoDB{
		client:       client,
		postsColl:    db.Collection("posts"),
		outboxColl:   db.Collection(sharedMongo.OutboxCollection),
		countersColl: db.Collection("counters"),
	}, nil
}

var _ domain.PostRepository = (*PostRepoMongoDB)(nil)

// EnsureIndexes crea un índice compuesto por cada orden keyset.
func (r *PostRepoMongoDB) EnsureIndexes(ctx context.Context) error {
	models := []mongo.IndexModel{
		{Keys: bson.D{{Key: "createdAt", Value: 1}, {Key: "_id", Value: 1}}},
		{Keys: bson.D{{Key: "updatedAt", Value: 1}, {Key: "_id", Value: 1}}},
		{Keys: bson.D{{Key: "title", Value: 1}, {Key: "_id", Value: 1}}},
		{Keys: bson.D{{Key: "authorId", Value: 1}}},
	}
	if _, err := r.postsColl.Indexes().CreateMany(ctx, models); err != nil {
		return fmt.Errorf("create post indexes: %w", err)
	}
	_, err := r.outboxColl.Indexes().CreateOne(ctx, mongo.IndexModel{
		Keys: bson.D{{Key: "processed", Value: 1}, {Key: "createdAt", Value: 1}},
	})
	return err
}

type mongoPost struct {
	ID          int64     `bson:"_id"`
	AuthorID    string    `bson:"authorId"`
	CategoryID  int64     `bson:"categoryId"`
	Title       string    `bson:"title"`
	Description string    `bson:"description"`
	Body        string    `bson:"body"`
	Tags        []string  `bson:"tags"`
	CreatedAt   time.Time `bson:"createdAt"`
	UpdatedAt   time.Time `bson:"updatedAt"`
}

// nextID reserva el siguiente id de la secuencia "posts".
func (r *PostRepoMongoDB) nextID(ctx context.Context) (int64, error) {
	var counter struct {
		Seq int64 `bson:"seq"`
	}
	opts := options.FindOneAndUpdate().SetUpsert(true).SetReturnDocument(options.After)
	err := r.countersColl.FindOneAndUpdate(ctx,
		bson.M{"_id": "posts"},
		bson.M{"$inc": bson.M{"seq": int64(1)}},
		opts,
	).Decode(&counter)
	if err != nil {
		return 0, fmt.Errorf("next post id: %w", err)
	}
	return counter.Seq, nil
}

func (r *PostRepoMongoDB) withTransaction(ctx context.Context, fn func(sessCtx mongo.SessionContext) error) error {
	session, err := r.client.StartSession()
	if err != nil {
		return err
	}
	defer session.EndSession(ctx)

	_, err = session.WithTransaction(ctx, func(sessCtx mongo.SessionContext) (interface{}, error) {
		return nil, fn(sessCtx)
	})
	return err
}

func (r *PostRepoMongoDB) insertOutbox(ctx context.Context, evt sharedDomain.OutboxEvent) error {
	doc, err := sharedMongo.ToOutboxDocument(evt)
	if err != nil {
		return err
	}
	_, err = r.outboxColl.InsertOne(ctx, doc)
	return err
}

func (r *PostRepoMongoDB) Create(ctx context.Context, p *domain.Post, newEvent domain.EventFactory) error {
	if p.ID == 0 {
		id, err := r.nextID(ctx)
		if err != nil {
			return err
		}
		p.ID = id
	}

	return r.withTransaction(ctx, func(sessCtx mongo.SessionContext) error {
		if _, err := r.postsColl.InsertOne(sessCtx, toMongoPost(p)); err != nil {
			if mongo.IsDuplicateKeyError(err) {
				return domain.ErrPostAlreadyExists
			}
			return err
		}
		return r.insertOutbox(sessCtx, newEvent(p))
	})
}

func (r *PostRepoMongoDB) Update(ctx context.Context, p *domain.Post, evt sharedDomain.OutboxEvent) error {
	return r.withTransaction(ctx, func(sessCtx mongo.SessionContext) error {
		mp := toMongoPost(p)
		res, err := r.postsColl.UpdateOne(sessCtx, bson.M{"_id": mp.ID}, bson.M{"$set": mp})
		if err != nil {
			return err
		}
		if res.MatchedCount == 0 {
			return domain.ErrPostNotFound
		}
		return r.insertOutbox(sessCtx, evt)
	})
}

func (r *PostRepoMongoDB) DeleteByID(ctx context.Context, id int64, evt sharedDomain.OutboxEvent) error {
	return r.withTransaction(ctx, func(sessCtx mongo.SessionContext) error {
		res, err := r.postsColl.DeleteOne(sessCtx, bson.M{"_id": id})
		if err != nil {
			return err
		}
		if res.DeletedCount == 0 {
			return domain.ErrPostNotFound
		}
		return r.insertOutbox(sessCtx, evt)
	})
}

func (r *PostRepoMongoDB) GetByID(ctx context.Context, id int64) (*domain.Post, error) {
	var mp mongoPost
	err := r.postsColl.FindOne(ctx, bson.M{"_id": id}).Decode(&mp)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, domain.ErrPostNotFound
		}
		return nil, err
	}
	return fromMongoPost(&mp)
}

func (r *PostRepoMongoDB) Search(ctx context.Context, q pagination.QuerySpec) ([]*domain.Post, error) {
	filter, err := criteriaToMongoFilter(q.Filter)
	if err != nil {
		return nil, err
	}
	sort, err := orderToMongoSort(q.Order)
	if err != nil {
		return nil, err
	}
	opts := options.Find().SetSort(sort)
	if q.Limit > 0 {
		opts.SetLimit(int64(q.Limit))
	}

	cursor, err := r.postsColl.Find(ctx, filter, opts)
	if err != nil {
		return nil, fmt.Errorf("search posts: %w", err)
	}
	defer cursor.Close(ctx)

	posts := make([]*domain.Post, 0, q.Limit)
	for cursor.Next(ctx) {
		var mp mongoPost
		if err := cursor.Decode(&mp); err != nil {
			return nil, err
		}
		p, err := fromMongoPost(&mp)
		if err != nil {
			return nil, err
		}
		posts = append(posts, p)
	}
	return posts, cursor.Err()
}

// --- Helpers de Mapeo y Conversión ---

func toMongoPost(p *domain.Post) *mongoPost {
	return &mongoPost{
		ID: p.ID, AuthorID: p.AuthorID.String(), CategoryID: p.CategoryID,
		Title: p.Title, Description: p.Description, Body: p.Body, Tags: p.Tags,
		CreatedAt: p.CreatedAt, UpdatedAt: p.UpdatedAt,
	}
}

func fromMongoPost(mp *mongoPost) (*domain.Post, error) {
	authorID, err := uuid.Parse(mp.AuthorID)
	if err != nil {
		return nil, fmt.Errorf("invalid author id for post %d: %w", mp.ID, err)
	}
	return &domain.Post{
		ID: mp.ID, AuthorID: authorID, CategoryID: mp.CategoryID,
		Title: mp.Title, Description: mp.Description, Body: mp.Body, Tags: mp.Tags,
		CreatedAt: mp.CreatedAt.UTC(), UpdatedAt: mp.UpdatedAt.UTC(),
	}, nil
}

func fieldKey(field string) (string, error) {
	key, ok := fieldKeys[field]
	if !ok {
		return "", fmt.Errorf("mongodb: unknown field %q", field)
	}
	return key, nil
}

// orderToMongoSort omite claves repetidas (ordenar por id ya desempata).
func orderToMongoSort(order []pagination.Order) (bson.D, error) {
	sort := bson.D{}
	seen := make(map[string]bool, len(order))
	for _, o := range order {
		key, err := fieldKey(o.Field)
		if err != nil {
			return nil, err
		}
		if seen[key] {
			continue
		}
		seen[key] = true
		dir := 1
		if o.Direction == pagination.DESC {
			dir = -1
		}
		sort = append(sort, bson.E{Key: key, Value: dir})
	}
	return sort, nil
}

// criteriaToMongoFilter recorre el árbol de criterios respetando AND/OR.
func criteriaToMongoFilter(criteria sharedDomain.Criteria) (bson.M, error) {
	switch c := sharedDomain.Normalize(criteria).(type) {
	case nil:
		return bson.M{}, nil
	case sharedDomain.Criterion:
		return leafToMongo(c)
	case sharedDomain.CompositeCriteria:
		children := make(bson.A, 0, len(c.Criterias))
		for _, child := range c.Criterias {
			f, err := criteriaToMongoFilter(child)
			if err != nil {
				return nil, err
			}
			children = append(children, f)
		}
		if c.Operator == sharedDomain.OpOr {
			return bson.M{"$or": children}, nil
		}
		return bson.M{"$and": children}, nil
	default:
		return nil, fmt.Errorf("mongodb: unsupported criteria %T", criteria)
	}
}

func leafToMongo(c sharedDomain.Criterion) (bson.M, error) {
	key, err := fieldKey(c.Field)
	if err != nil {
		return nil, err
	}

	var mongoOp string
	switch c.Op {
	case sharedDomain.OpEq:
		mongoOp = "$eq"
	case sharedDomain.OpGt:
		mongoOp = "$gt"
	case sharedDomain.OpGte:
		mongoOp = "$gte"
	case sharedDomain.OpLt:
		mongoOp = "$lt"
	case sharedDomain.OpLte:
		mongoOp = "$lte"
	case sharedDomain.OpIn:
		rv := reflect.ValueOf(c.Value)
		if rv.Kind() != reflect.Slice && rv.Kind() != reflect.Array {
			return nil, fmt.Errorf("mongodb: IN needs a slice on %q", c.Field)
		}
		values := make(bson.A, 0, rv.Len())
		for i := 0; i < rv.Len(); i++ {
			values = append(values, rv.Index(i).Interface())
		}
		return bson.M{key: bson.M{"$in": values}}, nil
	case sharedDomain.OpLike, sharedDomain.OpILike:
		pattern, ok := c.Value.(string)
		if !ok {
			return nil, fmt.Errorf("mongodb: %s needs a string on %q", c.Op, c.Field)
		}
		options := "s"
		if c.Op == sharedDomain.OpILike {
			options = "is"
		}
		return bson.M{key: bson.M{"$regex": likeToRegex(pattern), "$options": options}}, nil
	default:
		return nil, fmt.Errorf("mongodb: unsupported operator %q", c.Op)
	}
	return bson.M{key: bson.M{mongoOp: c.Value}}, nil
}

// likeToRegex traduce los comodines % y _ de LIKE a una regex anclada.
func likeToRegex(pattern string) string {
	var b strings.Builder
	b.WriteString("^")
	for _, r := range pattern {
		switch r {
		case '%':
			b.WriteString(".*")
		case '_':
			b.WriteString(".")
		default:
			b.WriteString(regexp.QuoteMeta(string(r)))
		}
	}
	b.WriteString("$")
	return b.String()
}
