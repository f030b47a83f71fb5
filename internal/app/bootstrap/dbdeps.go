// internal/app/bootstrap/dbdeps.go
package bootstrap

import "go.mongodb.org/mongo-driver/mongo"

// DBDeps is what ConnectDB hands to the later lifecycle hooks. Bloom keeps
// everything in one Mongo database.
type DBDeps struct {
	MongoClient   *mongo.Client
	MongoDatabase *mongo.Database
}
