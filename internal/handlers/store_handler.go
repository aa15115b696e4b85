package handlers

import (
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"net/http"
	"time"

	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/ibeanu/lesson-store/internal/aws"
	"github.com/ibeanu/lesson-store/internal/idempotency"
	"github.com/ibeanu/lesson-store/internal/lessons"
	"github.com/ibeanu/lesson-store/internal/metrics"
	"github.com/ibeanu/lesson-store/internal/orders"
	"github.com/ibeanu/lesson-store/internal/validation"
)

// HandlerConfig groups dependencies for the storefront handlers.
type HandlerConfig struct {
	DynamoDBClient   aws.DynamoDBAPI
	SQSClient        aws.SQSAPI
	CloudWatchClient aws.CloudWatchAPI
	LessonsTable     string
	OrdersTable      string
	IdempotencyTable string // empty disables idempotent placement
	QueueURL         string // empty disables order-placed events
	MetricsNamespace string
	TTLWindow        time.Duration
}

// RegisterStoreRoutes wires the storefront endpoints onto the engine.
func RegisterStoreRoutes(r *gin.Engine, cfg HandlerConfig) {
	v := validation.New()
	lessonStore := lessons.NewStore(cfg.DynamoDBClient, cfg.LessonsTable)
	orderStore := orders.NewStore(cfg.DynamoDBClient, cfg.OrdersTable)

	var idempStore *idempotency.Store
	if cfg.IdempotencyTable != "" {
		idempStore = idempotency.NewStore(cfg.DynamoDBClient, cfg.IdempotencyTable, cfg.TTLWindow)
	}
	var publisher *aws.Publisher
	if cfg.QueueURL != "" && cfg.SQSClient != nil {
		publisher = aws.NewPublisher(cfg.SQSClient, cfg.QueueURL)
	}
	var emitter *metrics.Emitter
	if cfg.CloudWatchClient != nil {
		emitter = metrics.NewEmitter(cfg.CloudWatchClient, cfg.MetricsNamespace)
	}

	r.GET("/", func(c *gin.Context) {
		c.String(http.StatusOK, "Welcome to our lesson store")
	})

	r.GET("/api/lessons", func(c *gin.Context) {
		list, err := lessonStore.List(c.Request.Context())
		if err != nil {
			log.Printf("[api] list lessons: %v", err)
			c.JSON(http.StatusInternalServerError, gin.H{"error": "Unable to fetch lessons"})
			return
		}
		c.JSON(http.StatusOK, list)
	})

	r.GET("/search", func(c *gin.Context) {
		query := c.Query("query")
		if query == "" {
			c.JSON(http.StatusBadRequest, gin.H{"message": "query parameter is required"})
			return
		}
		matched, err := lessonStore.Search(c.Request.Context(), query)
		if err != nil {
			log.Printf("[api] search %q: %v", query, err)
			c.JSON(http.StatusInternalServerError, gin.H{"message": "Unable to search lessons"})
			return
		}
		c.JSON(http.StatusOK, matched)
	})

	r.POST("/api/order", func(c *gin.Context) {
		ctx := c.Request.Context()

		var req validation.PlaceOrderRequest
		if err := validation.BindAndValidate(c, &req, v); err != nil {
			// BindAndValidate already wrote a 400
			return
		}

		orderID := uuid.NewString()

		// Optional replay protection: a repeated Idempotency-Key returns
		// the original outcome instead of placing a second order.
		idempKey := c.GetHeader("Idempotency-Key")
		if idempStore != nil && idempKey != "" {
			created, err := idempStore.Begin(ctx, idempKey, orderID)
			if err != nil {
				log.Printf("[api] idempotency begin: %v", err)
				c.JSON(http.StatusInternalServerError, gin.H{"error": "Unable to place order"})
				return
			}
			if !created {
				replayIdempotent(c, idempStore, idempKey)
				return
			}
		}

		order := orders.Order{
			OrderID: orderID,
			Status:  orders.StatusPending,
		}
		decrements := make([]types.TransactWriteItem, 0, len(req.Order.Lessons))
		for _, line := range req.Order.Lessons {
			order.Lessons = append(order.Lessons, orders.LineItem{
				LessonID: line.ID,
				Quantity: line.Quantity,
			})
			decrements = append(decrements, lessonStore.DecrementTransactItem(line.ID, line.Quantity))
		}

		if err := orderStore.Place(ctx, order, decrements); err != nil {
			if errors.Is(err, lessons.ErrInsufficientStock) {
				emitter.Count(ctx, metrics.MetricOversellRejected)
				if idempStore != nil && idempKey != "" {
					_ = idempStore.Fail(ctx, idempKey, err.Error())
				}
				c.JSON(http.StatusConflict, gin.H{"error": err.Error()})
				return
			}
			log.Printf("[api] place order: %v", err)
			if idempStore != nil && idempKey != "" {
				_ = idempStore.Fail(ctx, idempKey, err.Error())
			}
			c.JSON(http.StatusInternalServerError, gin.H{"error": "Unable to place order"})
			return
		}

		// The order and its decrements are durable; confirmation events are
		// best effort and must not fail the placement.
		if publisher != nil {
			body, _ := json.Marshal(orderMessage{
				OrderID:       orderID,
				CorrelationID: c.GetHeader("X-Request-Id"),
			})
			attrs := map[string]string{
				"order_id":       orderID,
				"correlation_id": c.GetHeader("X-Request-Id"),
			}
			if err := publisher.PublishOrderPlaced(ctx, string(body), attrs); err != nil {
				log.Printf("[api] publish order %s: %v", orderID, err)
			}
		}

		emitter.Count(ctx, metrics.MetricOrdersPlaced)

		response := gin.H{"message": "Order placed successfully", "orderId": orderID}
		if idempStore != nil && idempKey != "" {
			stored, _ := json.Marshal(response)
			_ = idempStore.Complete(ctx, idempKey, string(stored), http.StatusCreated)
		}
		c.Header("Location", fmt.Sprintf("/api/orders/%s", orderID))
		c.JSON(http.StatusCreated, response)
	})

	r.PUT("/api/lessons/:id", func(c *gin.Context) {
		ctx := c.Request.Context()
		id := c.Param("id")

		var req validation.UpdateAvailabilityRequest
		if err := validation.BindAndValidate(c, &req, v); err != nil {
			return
		}

		if err := lessonStore.SetAvailability(ctx, id, *req.Available); err != nil {
			if errors.Is(err, lessons.ErrNotFound) {
				c.JSON(http.StatusNotFound, gin.H{"error": fmt.Sprintf("Lesson with ID %s not found", id)})
				return
			}
			log.Printf("[api] set availability %s: %v", id, err)
			c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to update lesson availability"})
			return
		}

		emitter.Count(ctx, metrics.MetricAvailabilityEdits)
		c.JSON(http.StatusOK, gin.H{"message": "Lesson availability updated successfully"})
	})

	r.NoRoute(func(c *gin.Context) {
		c.String(http.StatusNotFound, "Resource not found!")
	})
}

// replayIdempotent answers a duplicate Idempotency-Key from the stored record.
func replayIdempotent(c *gin.Context, store *idempotency.Store, key string) {
	rec, err := store.Lookup(c.Request.Context(), key)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Unable to place order"})
		return
	}
	if rec == nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Unable to place order"})
		return
	}
	switch rec.Status {
	case idempotency.StatusDone:
		if rec.Response != "" {
			c.Data(rec.ResponseStatus, "application/json", []byte(rec.Response))
			return
		}
		c.JSON(http.StatusOK, gin.H{"orderId": rec.OrderID})
	case idempotency.StatusInProgress:
		c.JSON(http.StatusAccepted, gin.H{"message": "request already in progress", "orderId": rec.OrderID})
	case idempotency.StatusFailed:
		c.JSON(http.StatusInternalServerError, gin.H{"error": "previous attempt failed", "orderId": rec.OrderID})
	default:
		c.JSON(http.StatusInternalServerError, gin.H{"error": "unknown idempotency status"})
	}
}

// orderMessage is the payload sent from API -> SQS -> worker.
type orderMessage struct {
	OrderID       string `json:"order_id"`
	CorrelationID string `json:"correlation_id,omitempty"`
}
