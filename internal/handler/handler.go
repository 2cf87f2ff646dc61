package handler

import (
	"net/http"
	"sync"

	"apiquery/internal/logger"
	"apiquery/internal/model"
	"apiquery/internal/service"

	"github.com/gin-gonic/gin"
)

var (
	activeDB service.DBClient

	// allowedTables maps each exposed table to its id column.
	allowedTables = map[string]string{}

	connectMu sync.Mutex
)

// newPostgresClient is a function that returns a service.DBClient.
// By default, it returns service.NewPostgresClient(), but can be overridden in tests.
var newPostgresClient = func() service.DBClient { return service.NewPostgresClient() }

// Configure sets the database client and the tables the API exposes.
func Configure(db service.DBClient, tables map[string]string) {
	connectMu.Lock()
	defer connectMu.Unlock()
	activeDB = db
	allowedTables = make(map[string]string, len(tables))
	for table, idColumn := range tables {
		allowedTables[table] = idColumn
	}
}

func Ping(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"message": "pong",
	})
}

// ConnectHandler swaps the active database at runtime.
func ConnectHandler(c *gin.Context) {
	var req model.ConnectRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request"})
		return
	}

	var client service.DBClient
	switch req.Driver {
	case "postgres":
		client = newPostgresClient()
	default:
		c.JSON(http.StatusBadRequest, gin.H{"error": "Unsupported driver"})
		return
	}

	if err := client.Connect(req.DSN); err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to connect: " + err.Error()})
		return
	}

	connectMu.Lock()
	previous := activeDB
	activeDB = client
	connectMu.Unlock()

	if previous != nil {
		if err := previous.Disconnect(); err != nil {
			logger.FromContext(c.Request.Context()).Error(err, "closing previous connection")
		}
	}

	c.JSON(http.StatusOK, gin.H{"message": "Connected successfully"})
}

func currentDB() service.DBClient {
	connectMu.Lock()
	defer connectMu.Unlock()
	return activeDB
}

func lookupTable(table string) (string, bool) {
	connectMu.Lock()
	defer connectMu.Unlock()
	idColumn, ok := allowedTables[table]
	return idColumn, ok
}
