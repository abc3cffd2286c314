package utils

import (
	"context"
	"os"
	"path/filepath"
	"runtime"
	"sync"
	"testing"
	"time"

	"github.com/joho/godotenv"
	"github.com/stretchr/testify/require"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

var (
	envOnce      sync.Once
	testMongoURI string
)

func mongoURIForTests() string {
	envOnce.Do(func() {
		_, filename, _, _ := runtime.Caller(0)
		projectRoot := filepath.Join(filepath.Dir(filename), "..", "..")
		if err := godotenv.Load(filepath.Join(projectRoot, ".env")); err != nil {
			godotenv.Load()
		}
		testMongoURI = os.Getenv("MONGO_URI")
	})
	return testMongoURI
}

// SetupTestDB returns a scratch database for a MongoDB-backed test. The listed
// collections start empty and the whole database is dropped when the test ends.
// Without MONGO_URI the test is skipped.
func SetupTestDB(t *testing.T, dbName string, collections ...string) *mongo.Database {
	t.Helper()
	uri := mongoURIForTests()
	if uri == "" {
		t.Skip("MONGO_URI not set; skipping database-backed test")
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	client, err := mongo.Connect(ctx, options.Client().ApplyURI(uri))
	require.NoError(t, err, "Failed to connect to MongoDB")

	db := client.Database(dbName)
	for _, collection := range collections {
		require.NoError(t, db.Collection(collection).Drop(ctx), "dropping %s", collection)
	}

	t.Cleanup(func() {
		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		_ = db.Drop(ctx)
		_ = client.Disconnect(ctx)
	})
	return db
}

// RequireReplicaSet skips tests that need multi-document transactions.
func RequireReplicaSet(t *testing.T, db *mongo.Database) {
	t.Helper()
	var hello bson.M
	if err := db.RunCommand(context.Background(), bson.D{{Key: "hello", Value: 1}}).Decode(&hello); err != nil {
		t.Skipf("cannot query server topology: %v", err)
	}
	if _, ok := hello["setName"]; !ok {
		t.Skip("MongoDB is not a replica set; skipping transactional test")
	}
}
