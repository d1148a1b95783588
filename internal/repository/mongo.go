package repository

import (
	"context"
	"errors"
	"fmt"
	"regexp"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"caja/internal/domain"
)

// MongoStore подключение к MongoDB и коллекции документов кассы
type MongoStore struct {
	client *mongo.Client
	db     *mongo.Database
}

// ConnectMongo подключается и проверяет соединение ping-ом
func ConnectMongo(ctx context.Context, uri, dbName string) (*MongoStore, error) {
	ctx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()

	client, err := mongo.Connect(ctx, options.Client().ApplyURI(uri))
	if err != nil {
		return nil, fmt.Errorf("mongo connect: %w", err)
	}
	if err := client.Ping(ctx, nil); err != nil {
		_ = client.Disconnect(context.Background())
		return nil, fmt.Errorf("mongo ping: %w", err)
	}
	logrus.WithField("db", dbName).Info("Connected to MongoDB")
	return &MongoStore{client: client, db: client.Database(dbName)}, nil
}

func (s *MongoStore) Disconnect(ctx context.Context) error {
	return s.client.Disconnect(ctx)
}

// EnsureIndexes индексы для выборки по дню и сортировки истории
func (s *MongoStore) EnsureIndexes(ctx context.Context) error {
	_, err := s.db.Collection(CollectionOrders).Indexes().CreateMany(ctx, []mongo.IndexModel{
		{Keys: bson.D{{Key: "day", Value: 1}, {Key: "status", Value: 1}}},
		{Keys: bson.D{{Key: "date", Value: -1}}},
	})
	if err != nil {
		return fmt.Errorf("create order indexes: %w", err)
	}
	_, err = s.db.Collection(CollectionProducts).Indexes().CreateOne(ctx, mongo.IndexModel{
		Keys: bson.D{{Key: "category", Value: 1}, {Key: "name", Value: 1}},
	})
	if err != nil {
		return fmt.Errorf("create product indexes: %w", err)
	}
	return nil
}

func (s *MongoStore) Products() *MongoProducts {
	return &MongoProducts{coll: s.db.Collection(CollectionProducts)}
}

func (s *MongoStore) Orders() *MongoOrders {
	return &MongoOrders{coll: s.db.Collection(CollectionOrders)}
}

func (s *MongoStore) Extras() *MongoExtras {
	return &MongoExtras{coll: s.db.Collection(CollectionExtras)}
}

func (s *MongoStore) Settings() *MongoSettings {
	return &MongoSettings{coll: s.db.Collection(CollectionSettings)}
}

func (s *MongoStore) Counter() *MongoCounter {
	return &MongoCounter{coll: s.db.Collection(CollectionCounter)}
}

func (s *MongoStore) Tx() *MongoTx {
	return &MongoTx{client: s.client}
}

func notFound(err error) error {
	if errors.Is(err, mongo.ErrNoDocuments) {
		return ErrNotFound
	}
	return err
}

// Products
type MongoProducts struct{ coll *mongo.Collection }

var _ ProductRepository = (*MongoProducts)(nil)

func (r *MongoProducts) Create(ctx context.Context, p *domain.Product) error {
	if p.ID == "" {
		p.ID = uuid.NewString()
	}
	_, err := r.coll.InsertOne(ctx, p)
	return err
}

func (r *MongoProducts) GetByID(ctx context.Context, id string) (*domain.Product, error) {
	var p domain.Product
	if err := r.coll.FindOne(ctx, bson.M{"_id": id}).Decode(&p); err != nil {
		return nil, notFound(err)
	}
	return &p, nil
}

func (r *MongoProducts) Update(ctx context.Context, p *domain.Product) error {
	res, err := r.coll.ReplaceOne(ctx, bson.M{"_id": p.ID}, p)
	if err != nil {
		return err
	}
	if res.MatchedCount == 0 {
		return ErrNotFound
	}
	return nil
}

func (r *MongoProducts) Delete(ctx context.Context, id string) error {
	res, err := r.coll.DeleteOne(ctx, bson.M{"_id": id})
	if err != nil {
		return err
	}
	if res.DeletedCount == 0 {
		return ErrNotFound
	}
	return nil
}

func (r *MongoProducts) List(ctx context.Context, f ProductFilter) ([]domain.Product, error) {
	filter := bson.M{}
	if f.NameSubstring != "" {
		filter["name"] = bson.M{"$regex": regexp.QuoteMeta(f.NameSubstring), "$options": "i"}
	}
	if f.Category != "" {
		filter["category"] = f.Category
	}
	if f.InStock != nil {
		filter["stock"] = *f.InStock
	}
	opts := options.Find().SetSort(bson.D{{Key: "category", Value: 1}, {Key: "name", Value: 1}})
	cursor, err := r.coll.Find(ctx, filter, opts)
	if err != nil {
		return nil, err
	}
	defer cursor.Close(ctx)

	out := make([]domain.Product, 0)
	if err := cursor.All(ctx, &out); err != nil {
		return nil, err
	}
	return out, nil
}

// Orders
type MongoOrders struct{ coll *mongo.Collection }

var _ OrderRepository = (*MongoOrders)(nil)

func (r *MongoOrders) Create(ctx context.Context, o *domain.Order) error {
	if o.ID == "" {
		o.ID = uuid.NewString()
	}
	_, err := r.coll.InsertOne(ctx, o)
	return err
}

func (r *MongoOrders) GetByID(ctx context.Context, id string) (*domain.Order, error) {
	var o domain.Order
	if err := r.coll.FindOne(ctx, bson.M{"_id": id}).Decode(&o); err != nil {
		return nil, notFound(err)
	}
	return &o, nil
}

func orderFilter(f OrderFilter) bson.M {
	filter := bson.M{}
	if f.Day != "" {
		filter["day"] = f.Day
	}
	if f.From != nil || f.To != nil {
		date := bson.M{}
		if f.From != nil {
			date["$gte"] = *f.From
		}
		if f.To != nil {
			date["$lte"] = *f.To
		}
		filter["date"] = date
	}
	if f.Status != "" {
		filter["status"] = f.Status
	}
	if f.Search != "" {
		rx := bson.M{"$regex": regexp.QuoteMeta(f.Search), "$options": "i"}
		filter["$or"] = bson.A{bson.M{"orderId": rx}, bson.M{"paymentMethod": rx}}
	}
	return filter
}

func (r *MongoOrders) List(ctx context.Context, f OrderFilter) ([]domain.Order, error) {
	opts := options.Find().SetSort(bson.D{{Key: "date", Value: -1}, {Key: "_id", Value: -1}})
	if f.Offset > 0 {
		opts.SetSkip(int64(f.Offset))
	}
	if f.Limit > 0 {
		opts.SetLimit(int64(f.Limit))
	}
	cursor, err := r.coll.Find(ctx, orderFilter(f), opts)
	if err != nil {
		return nil, err
	}
	defer cursor.Close(ctx)

	out := make([]domain.Order, 0)
	if err := cursor.All(ctx, &out); err != nil {
		return nil, err
	}
	return out, nil
}

func (r *MongoOrders) UpdateStatus(ctx context.Context, id string, status domain.OrderStatus) error {
	res, err := r.coll.UpdateOne(ctx, bson.M{"_id": id}, bson.M{"$set": bson.M{"status": status}})
	if err != nil {
		return err
	}
	if res.MatchedCount == 0 {
		return ErrNotFound
	}
	return nil
}

func (r *MongoOrders) Delete(ctx context.Context, id string) error {
	res, err := r.coll.DeleteOne(ctx, bson.M{"_id": id})
	if err != nil {
		return err
	}
	if res.DeletedCount == 0 {
		return ErrNotFound
	}
	return nil
}

// Extras: один документ {_id: "prices", prices: {name: price}}
type MongoExtras struct{ coll *mongo.Collection }

var _ ExtraRepository = (*MongoExtras)(nil)

type extrasDoc struct {
	ID     string             `bson:"_id"`
	Prices domain.ExtraPrices `bson:"prices"`
}

func (r *MongoExtras) Prices(ctx context.Context) (domain.ExtraPrices, error) {
	var doc extrasDoc
	err := r.coll.FindOne(ctx, bson.M{"_id": ExtrasDocID}).Decode(&doc)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return domain.ExtraPrices{}, nil
	}
	if err != nil {
		return nil, err
	}
	if doc.Prices == nil {
		doc.Prices = domain.ExtraPrices{}
	}
	return doc.Prices, nil
}

func (r *MongoExtras) SetPrice(ctx context.Context, name string, price float64) error {
	_, err := r.coll.UpdateOne(ctx,
		bson.M{"_id": ExtrasDocID},
		bson.M{"$set": bson.M{"prices." + name: price}},
		options.Update().SetUpsert(true),
	)
	return err
}

func (r *MongoExtras) Delete(ctx context.Context, name string) error {
	field := "prices." + name
	res, err := r.coll.UpdateOne(ctx,
		bson.M{"_id": ExtrasDocID, field: bson.M{"$exists": true}},
		bson.M{"$unset": bson.M{field: ""}},
	)
	if err != nil {
		return err
	}
	if res.MatchedCount == 0 {
		return ErrNotFound
	}
	return nil
}

// Settings
type MongoSettings struct{ coll *mongo.Collection }

var _ SettingsRepository = (*MongoSettings)(nil)

func (r *MongoSettings) DiscountPercentage(ctx context.Context) (float64, error) {
	var doc struct {
		DiscountPercentage float64 `bson:"discountPercentage"`
	}
	if err := r.coll.FindOne(ctx, bson.M{"_id": DiscountDocID}).Decode(&doc); err != nil {
		return 0, notFound(err)
	}
	return doc.DiscountPercentage, nil
}

func (r *MongoSettings) SetDiscountPercentage(ctx context.Context, pct float64) error {
	_, err := r.coll.UpdateOne(ctx,
		bson.M{"_id": DiscountDocID},
		bson.M{"$set": bson.M{"discountPercentage": pct}},
		options.Update().SetUpsert(true),
	)
	return err
}

// Counter
type MongoCounter struct{ coll *mongo.Collection }

var _ CounterRepository = (*MongoCounter)(nil)

func (r *MongoCounter) Get(ctx context.Context) (*domain.DailyCounter, error) {
	var c domain.DailyCounter
	if err := r.coll.FindOne(ctx, bson.M{"_id": CounterDocID}).Decode(&c); err != nil {
		return nil, notFound(err)
	}
	return &c, nil
}

func (r *MongoCounter) Set(ctx context.Context, c domain.DailyCounter) error {
	_, err := r.coll.UpdateOne(ctx,
		bson.M{"_id": CounterDocID},
		bson.M{"$set": bson.M{"date": c.Date, "orderNumber": c.OrderNumber}},
		options.Update().SetUpsert(true),
	)
	return err
}

// incrementPipeline одно серверное обновление: тот же день -> +1, иначе сброс на 1
func incrementPipeline(day string) mongo.Pipeline {
	sameDay := bson.D{{Key: "$eq", Value: bson.A{"$date", day}}}
	next := bson.D{{Key: "$add", Value: bson.A{bson.D{{Key: "$ifNull", Value: bson.A{"$orderNumber", 0}}}, 1}}}
	return mongo.Pipeline{
		{{Key: "$set", Value: bson.D{
			{Key: "orderNumber", Value: bson.D{{Key: "$cond", Value: bson.A{sameDay, next, 1}}}},
			{Key: "date", Value: day},
		}}},
	}
}

func (r *MongoCounter) Increment(ctx context.Context, day string) (int, error) {
	opts := options.FindOneAndUpdate().SetUpsert(true).SetReturnDocument(options.After)
	var c domain.DailyCounter
	err := r.coll.FindOneAndUpdate(ctx, bson.M{"_id": CounterDocID}, incrementPipeline(day), opts).Decode(&c)
	if err != nil {
		return 0, err
	}
	return c.OrderNumber, nil
}

// MongoTx транзакция в сессии; требует replica set
type MongoTx struct{ client *mongo.Client }

var _ TxManager = (*MongoTx)(nil)

func (tx *MongoTx) WithTransaction(ctx context.Context, fn func(ctx context.Context) error) error {
	session, err := tx.client.StartSession()
	if err != nil {
		return fmt.Errorf("start session: %w", err)
	}
	defer session.EndSession(ctx)

	_, err = session.WithTransaction(ctx, func(sc mongo.SessionContext) (interface{}, error) {
		return nil, fn(sc)
	})
	return err
}
