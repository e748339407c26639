package store

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

// Connect dials Mongo and verifies the connection with a bounded ping.
func Connect(ctx context.Context, uri string) (*mongo.Client, error) {
	if uri == "" {
		return nil, errors.New("store: mongo uri is empty")
	}
	cli, err := mongo.Connect(ctx, options.Client().ApplyURI(uri))
	if err != nil {
		return nil, err
	}
	pingCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()
	if err := cli.Ping(pingCtx, nil); err != nil {
		_ = cli.Disconnect(context.Background())
		return nil, err
	}
	return cli, nil
}

type accountDoc struct {
	ID           string    `bson:"_id"`
	Email        string    `bson:"email"`
	PasswordHash string    `bson:"password_hash"`
	KDFSalt      []byte    `bson:"kdf_salt"`
	CreatedAt    time.Time `bson:"created_at"`
}

type MongoAccountStore struct {
	coll *mongo.Collection
}

func NewMongoAccountStore(ctx context.Context, cli *mongo.Client, db, coll string) (*MongoAccountStore, error) {
	c := cli.Database(db).Collection(coll)
	_, err := c.Indexes().CreateOne(ctx, mongo.IndexModel{
		Keys:    bson.D{{Key: "email", Value: 1}},
		Options: options.Index().SetUnique(true),
	})
	if err != nil {
		return nil, err
	}
	return &MongoAccountStore{coll: c}, nil
}

func (s *MongoAccountStore) Save(ctx context.Context, a *Account) error {
	doc := accountDoc{
		ID:           a.ID.String(),
		Email:        normalizeEmail(a.Email),
		PasswordHash: a.PasswordHash,
		KDFSalt:      a.KDFSalt,
		CreatedAt:    a.CreatedAt,
	}
	_, err := s.coll.InsertOne(ctx, doc)
	if mongo.IsDuplicateKeyError(err) {
		return ErrDuplicateEmail
	}
	return err
}

func (s *MongoAccountStore) FindByEmail(ctx context.Context, email string) (*Account, error) {
	return s.findOne(ctx, bson.M{"email": normalizeEmail(email)})
}

func (s *MongoAccountStore) FindByID(ctx context.Context, id uuid.UUID) (*Account, error) {
	return s.findOne(ctx, bson.M{"_id": id.String()})
}

func (s *MongoAccountStore) Exists(ctx context.Context, email string) (bool, error) {
	n, err := s.coll.CountDocuments(ctx, bson.M{"email": normalizeEmail(email)})
	if err != nil {
		return false, err
	}
	return n > 0, nil
}

func (s *MongoAccountStore) findOne(ctx context.Context, filter any) (*Account, error) {
	var doc accountDoc
	err := s.coll.FindOne(ctx, filter).Decode(&doc)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	id, err := uuid.Parse(doc.ID)
	if err != nil {
		return nil, err
	}
	return &Account{
		ID:           id,
		Email:        doc.Email,
		PasswordHash: doc.PasswordHash,
		KDFSalt:      doc.KDFSalt,
		CreatedAt:    doc.CreatedAt,
	}, nil
}

type itemDoc struct {
	ID         string    `bson:"_id"`
	AccountID  string    `bson:"account_id"`
	Title      string    `bson:"title"`
	Username   string    `bson:"username"`
	URL        string    `bson:"url"`
	Ciphertext []byte    `bson:"ciphertext"`
	Nonce      []byte    `bson:"nonce"`
	CreatedAt  time.Time `bson:"created_at"`
	UpdatedAt  time.Time `bson:"updated_at"`
}

type MongoItemStore struct {
	coll *mongo.Collection
}

func NewMongoItemStore(ctx context.Context, cli *mongo.Client, db, coll string) (*MongoItemStore, error) {
	c := cli.Database(db).Collection(coll)
	_, err := c.Indexes().CreateOne(ctx, mongo.IndexModel{
		Keys: bson.D{{Key: "account_id", Value: 1}, {Key: "created_at", Value: 1}},
	})
	if err != nil {
		return nil, err
	}
	return &MongoItemStore{coll: c}, nil
}

func (s *MongoItemStore) Save(ctx context.Context, it *Item) error {
	doc := itemDoc{
		ID:         it.ID.String(),
		AccountID:  it.AccountID.String(),
		Title:      it.Title,
		Username:   it.Username,
		URL:        it.URL,
		Ciphertext: it.Ciphertext,
		Nonce:      it.Nonce,
		CreatedAt:  it.CreatedAt,
		UpdatedAt:  it.UpdatedAt,
	}
	opts := options.Replace().SetUpsert(true)
	_, err := s.coll.ReplaceOne(ctx, bson.M{"_id": doc.ID, "account_id": doc.AccountID}, doc, opts)
	return err
}

func (s *MongoItemStore) Find(ctx context.Context, id, accountID uuid.UUID) (*Item, error) {
	var doc itemDoc
	err := s.coll.FindOne(ctx, bson.M{"_id": id.String(), "account_id": accountID.String()}).Decode(&doc)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return docToItem(&doc)
}

func (s *MongoItemStore) Delete(ctx context.Context, id, accountID uuid.UUID) error {
	res, err := s.coll.DeleteOne(ctx, bson.M{"_id": id.String(), "account_id": accountID.String()})
	if err != nil {
		return err
	}
	if res.DeletedCount == 0 {
		return ErrNotFound
	}
	return nil
}

func (s *MongoItemStore) List(ctx context.Context, accountID uuid.UUID) ([]Item, error) {
	opts := options.Find().SetSort(bson.D{{Key: "created_at", Value: 1}})
	cur, err := s.coll.Find(ctx, bson.M{"account_id": accountID.String()}, opts)
	if err != nil {
		return nil, err
	}
	defer cur.Close(ctx)

	out := make([]Item, 0)
	for cur.Next(ctx) {
		var doc itemDoc
		if err := cur.Decode(&doc); err != nil {
			return nil, err
		}
		it, err := docToItem(&doc)
		if err != nil {
			return nil, err
		}
		out = append(out, *it)
	}
	return out, cur.Err()
}

func docToItem(doc *itemDoc) (*Item, error) {
	id, err := uuid.Parse(doc.ID)
	if err != nil {
		return nil, err
	}
	accountID, err := uuid.Parse(doc.AccountID)
	if err != nil {
		return nil, err
	}
	return &Item{
		ID:         id,
		AccountID:  accountID,
		Title:      doc.Title,
		Username:   doc.Username,
		URL:        doc.URL,
		Ciphertext: doc.Ciphertext,
		Nonce:      doc.Nonce,
		CreatedAt:  doc.CreatedAt,
		UpdatedAt:  doc.UpdatedAt,
	}, nil
}
