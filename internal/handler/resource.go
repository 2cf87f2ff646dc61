package handler

import (
	"errors"
	"net/http"
	"net/url"
	"sort"
	"strconv"

	"apiquery/helper"
	"apiquery/internal/logger"
	"apiquery/internal/service"

	"github.com/gin-gonic/gin"
)

// ListRowsHandler serves GET /:table. Every query argument is an equality filter.
func ListRowsHandler(c *gin.Context) {
	table := c.Param("table")
	if _, ok := lookupTable(table); !ok {
		c.JSON(http.StatusNotFound, gin.H{"error": "Unknown table"})
		return
	}

	db := currentDB()
	if db == nil {
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": "No active database connection"})
		return
	}

	filters, err := filtersFromQuery(c.Request.URL.Query())
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	logger.FromContext(c.Request.Context()).V(1).Info("listing rows", "table", table, "filters", len(filters))
	rows, err := db.ListRows(c.Request.Context(), table, filters)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	c.JSON(http.StatusOK, rows)
}

// GetRowHandler serves GET /:table/:id.
func GetRowHandler(c *gin.Context) {
	table := c.Param("table")
	idColumn, ok := lookupTable(table)
	if !ok {
		c.JSON(http.StatusNotFound, gin.H{"error": "Unknown table"})
		return
	}

	id, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "Record not found"})
		return
	}

	db := currentDB()
	if db == nil {
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": "No active database connection"})
		return
	}

	row, err := db.GetRow(c.Request.Context(), table, idColumn, id)
	if errors.Is(err, service.ErrNotFound) {
		c.JSON(http.StatusNotFound, gin.H{"error": "Record not found"})
		return
	}
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}

	c.JSON(http.StatusOK, row)
}

// RawQueryHandler serves GET /query?sql=... for read-only statements.
func RawQueryHandler(c *gin.Context) {
	query := c.Query("sql")
	if query == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Missing 'sql' query parameter"})
		return
	}
	if !helper.IsReadOnlyQuery(query) {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Only a single SELECT statement is allowed"})
		return
	}

	db := currentDB()
	if db == nil {
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": "No active database connection"})
		return
	}

	logger.FromContext(c.Request.Context()).Info("Executing query", "sql", query)
	rows, err := db.RunQuery(c.Request.Context(), query)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	c.JSON(http.StatusOK, rows)
}

// filtersFromQuery takes the first value of each argument, ordered by name.
func filtersFromQuery(values url.Values) ([]service.Filter, error) {
	keys := make([]string, 0, len(values))
	for k := range values {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	filters := make([]service.Filter, 0, len(keys))
	for _, k := range keys {
		if !helper.IsValidIdentifier(k) {
			return nil, errors.New("Invalid filter column: " + k)
		}
		filters = append(filters, service.Filter{Column: k, Value: values.Get(k)})
	}
	return filters, nil
}
