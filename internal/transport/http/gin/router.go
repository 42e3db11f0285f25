package httpgin

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"

	"github.com/yshvd/bookgo/internal/domain"
	redisrepo "github.com/yshvd/bookgo/internal/repository/redis"
	"github.com/yshvd/bookgo/internal/service"
	"github.com/yshvd/bookgo/internal/service/events"
	"github.com/yshvd/bookgo/internal/service/organization"
	"github.com/yshvd/bookgo/internal/service/query"
	"github.com/yshvd/bookgo/internal/service/registration"
)

func NewRouter(
	svcs *service.Services,
	idem *redisrepo.IdempotencyStore,
	logger *slog.Logger,
	middlewares ...gin.HandlerFunc,
) *gin.Engine {
	r := gin.New()

	r.Use(gin.Recovery(), LoggingMiddleware(logger), RequestIDMiddleware(), CORS())
	for _, m := range middlewares {
		if m != nil {
			r.Use(m)
		}
	}

	// Swagger UI
	r.GET("/swagger/*any", ginSwagger.WrapHandler(swaggerFiles.Handler))

	// health
	r.GET("/healthz", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})

	r.POST("/organizations", handleCreateOrganization(svcs))
	r.GET("/organizations/:org", handleGetOrganization(svcs))

	r.POST("/organizations/:org/events", handleCreateEvent(svcs))
	r.GET("/organizations/:org/events", handleListEvents(svcs))
	r.GET("/organizations/:org/registrations", handleListRegistrations(svcs))

	r.GET("/events/:id", handleGetEvent(svcs))
	r.PATCH("/events/:id", handleUpdateEvent(svcs))
	r.DELETE("/events/:id", handleDeleteEvent(svcs))
	r.GET("/events/:id/occurrences", handleListOccurrences(svcs))

	r.POST("/occurrences/:id/registrations", handleCreateRegistration(svcs, idem))
	r.DELETE("/registrations/:id", handleCancelRegistration(svcs))

	return r
}

// --- Handlers with Swagger annotations ---

// @Summary  Create organization
// @Param    req body  CreateOrganizationRequest true "payload"
// @Success  201 {object} domain.Organization
// @Failure  409 {object} ErrorResponse "slug taken"
// @Router   /organizations [post]
func handleCreateOrganization(svcs *service.Services) gin.HandlerFunc {
	return func(c *gin.Context) {
		var req CreateOrganizationRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			badRequest(c, err.Error())
			return
		}
		org, err := svcs.Organization.Create(c.Request.Context(), req.Name, req.Slug)
		if err != nil {
			respondErr(c, err)
			return
		}
		c.JSON(http.StatusCreated, org)
	}
}

// @Summary  Get organization by id or slug
// @Param    org  path  string  true  "Organization ID (uuid) or slug"
// @Success  200 {object} domain.Organization
// @Failure  404 {object} ErrorResponse
// @Router   /organizations/{org} [get]
func handleGetOrganization(svcs *service.Services) gin.HandlerFunc {
	return func(c *gin.Context) {
		ref := c.Param("org")

		var (
			org *domain.Organization
			err error
		)
		if id, perr := uuid.Parse(ref); perr == nil {
			org, err = svcs.Organization.Get(c.Request.Context(), id)
		} else {
			org, err = svcs.Organization.GetBySlug(c.Request.Context(), ref)
		}
		if err != nil {
			respondErr(c, err)
			return
		}
		writeJSONWithCache(c, http.StatusOK, org, "public, max-age=60", true)
	}
}

// @Summary  Create event
// @Param    org  path  string  true  "Organization ID (uuid)"
// @Param    req body  CreateEventRequest true "payload"
// @Success  201 {object} domain.Event
// @Failure  400 {object} InvalidPatternResponse "invalid recurrence pattern"
// @Router   /organizations/{org}/events [post]
func handleCreateEvent(svcs *service.Services) gin.HandlerFunc {
	return func(c *gin.Context) {
		orgID, ok := parseUUIDParam(c, "org")
		if !ok {
			return
		}
		var req CreateEventRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			badRequest(c, err.Error())
			return
		}
		start, err := parseRFC3339(req.StartDate)
		if err != nil {
			badRequest(c, "invalid start_date (RFC3339)")
			return
		}
		end, err := parseRFC3339(req.EndDate)
		if err != nil {
			badRequest(c, "invalid end_date (RFC3339)")
			return
		}

		event, err := svcs.Events.CreateEvent(c.Request.Context(), events.CreateEventInput{
			OrganizationID:    orgID,
			Title:             req.Title,
			Description:       req.Description,
			Location:          req.Location,
			StartDate:         start,
			EndDate:           end,
			MaxCapacity:       req.MaxCapacity,
			RecurrencePattern: req.RecurrencePattern,
		})
		if err != nil {
			respondErr(c, err)
			return
		}
		c.JSON(http.StatusCreated, event)
	}
}

// @Summary  List organization events
// @Param    org    path   string  true  "Organization ID (uuid)"
// @Param    first  query  int     false "page size"
// @Param    after  query  string  false "cursor"
// @Success  200 {object} repository.CursorResult[domain.Event]
// @Router   /organizations/{org}/events [get]
func handleListEvents(svcs *service.Services) gin.HandlerFunc {
	return func(c *gin.Context) {
		orgID, ok := parseUUIDParam(c, "org")
		if !ok {
			return
		}
		first := parseIntDefault(c.Query("first"), 0)
		res, err := svcs.Query.ListEvents(c.Request.Context(), orgID, first, c.Query("after"))
		if err != nil {
			respondErr(c, err)
			return
		}
		writeJSONWithCache(c, http.StatusOK, res, "public, max-age=15", true)
	}
}

// @Summary  Get event
// @Param    id  path  string  true  "Event ID (uuid)"
// @Success  200 {object} domain.Event
// @Failure  404 {object} ErrorResponse
// @Router   /events/{id} [get]
func handleGetEvent(svcs *service.Services) gin.HandlerFunc {
	return func(c *gin.Context) {
		eventID, ok := parseUUIDParam(c, "id")
		if !ok {
			return
		}
		e, err := svcs.Query.GetEvent(c.Request.Context(), eventID)
		if err != nil {
			respondErr(c, err)
			return
		}
		writeJSONWithCache(c, http.StatusOK, e, "public, max-age=60", true)
	}
}

// @Summary  Update event
// @Param    id  path  string  true  "Event ID (uuid)"
// @Param    req body  UpdateEventRequest true "payload"
// @Success  200 {object} domain.Event
// @Failure  400 {object} InvalidPatternResponse "invalid recurrence pattern"
// @Failure  404 {object} ErrorResponse
// @Router   /events/{id} [patch]
func handleUpdateEvent(svcs *service.Services) gin.HandlerFunc {
	return func(c *gin.Context) {
		eventID, ok := parseUUIDParam(c, "id")
		if !ok {
			return
		}
		var req UpdateEventRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			badRequest(c, err.Error())
			return
		}

		ch, err := eventChanges(req)
		if err != nil {
			badRequest(c, err.Error())
			return
		}

		event, err := svcs.Events.UpdateEvent(c.Request.Context(), eventID, ch)
		if err != nil {
			respondErr(c, err)
			return
		}
		c.JSON(http.StatusOK, event)
	}
}

// @Summary  Delete event and its occurrences
// @Param    id  path  string  true  "Event ID (uuid)"
// @Success  204
// @Failure  404 {object} ErrorResponse
// @Router   /events/{id} [delete]
func handleDeleteEvent(svcs *service.Services) gin.HandlerFunc {
	return func(c *gin.Context) {
		eventID, ok := parseUUIDParam(c, "id")
		if !ok {
			return
		}
		if err := svcs.Events.DeleteEvent(c.Request.Context(), eventID); err != nil {
			respondErr(c, err)
			return
		}
		c.Status(http.StatusNoContent)
	}
}

// @Summary  List event occurrences
// @Param    id     path   string  true  "Event ID (uuid)"
// @Param    limit  query  int     false "page size"
// @Param    offset query  int     false "offset"
// @Success  200 {array}  domain.Occurrence
// @Failure  404 {object} ErrorResponse
// @Router   /events/{id}/occurrences [get]
func handleListOccurrences(svcs *service.Services) gin.HandlerFunc {
	return func(c *gin.Context) {
		eventID, ok := parseUUIDParam(c, "id")
		if !ok {
			return
		}
		limit := parseIntDefault(c.Query("limit"), 0)
		offset := parseIntDefault(c.Query("offset"), 0)

		occs, err := svcs.Query.ListOccurrences(c.Request.Context(), eventID, limit, offset)
		if err != nil {
			respondErr(c, err)
			return
		}
		writeJSONWithCache(c, http.StatusOK, occs, "public, max-age=15", true)
	}
}

// @Summary  Register for occurrence (idempotent)
// @Param    id  path  string  true  "Occurrence ID (uuid)"
// @Param    req body  CreateRegistrationRequest true "payload"
// @Header   201 {string} Idempotency-Key "echo"
// @Success  201 {object} domain.Registration
// @Failure  404 {object} ErrorResponse "occurrence not found"
// @Failure  409 {object} ConflictResponse "overlap / capacity / already registered"
// @Failure  429 {object} ErrorResponse "rate limited"
// @Router   /occurrences/{id}/registrations [post]
func handleCreateRegistration(
	svcs *service.Services,
	idem *redisrepo.IdempotencyStore,
) gin.HandlerFunc {
	return func(c *gin.Context) {
		occurrenceID, ok := parseUUIDParam(c, "id")
		if !ok {
			return
		}
		var req CreateRegistrationRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			badRequest(c, err.Error())
			return
		}

		idemKey := strings.TrimSpace(c.GetHeader("Idempotency-Key"))
		var idemStorageKey string
		if idem != nil && idemKey != "" {
			idemStorageKey = redisrepo.KeyRegistration(occurrenceID, idemKey)

			if payload, ok, _ := idem.GetResult(c.Request.Context(), idemStorageKey); ok {
				c.Header("Idempotency-Key", idemKey)
				c.Data(http.StatusCreated, "application/json; charset=utf-8", []byte(payload))
				return
			}

			locked, err := idem.AcquireLock(c.Request.Context(), idemStorageKey, 60*time.Second)
			if err != nil {
				respondErr(c, err)
				return
			}
			if !locked {
				if payload, ok, _ := idem.GetResult(c.Request.Context(), idemStorageKey); ok {
					c.Header("Idempotency-Key", idemKey)
					c.Data(http.StatusCreated, "application/json; charset=utf-8", []byte(payload))
					return
				}
				c.Header("Retry-After", "1")
				c.JSON(http.StatusConflict, ErrorResponse{Error: "idempotency key in progress"})
				return
			}
		}

		reg, err := svcs.Registration.RegisterForOccurrence(c.Request.Context(), registration.RegisterInput{
			OccurrenceID: occurrenceID,
			UserID:       req.UserID,
			SeatCount:    req.SeatCount,
			RateLimitKey: "ip:" + c.ClientIP(),
		})
		if err != nil {
			if idemStorageKey != "" && idem != nil {
				_ = idem.Release(c.Request.Context(), idemStorageKey)
			}
			respondErr(c, err)
			return
		}

		if idemStorageKey != "" && idem != nil {
			b, _ := json.Marshal(reg)
			_ = idem.SaveResult(c.Request.Context(), idemStorageKey, string(b))
			c.Header("Idempotency-Key", idemKey)
		}

		c.JSON(http.StatusCreated, reg)
	}
}

// @Summary  Cancel registration, fully or partially
// @Param    id              path   string  true  "Registration ID (uuid)"
// @Param    new_seat_count  query  int     false "remaining seats; omitted or 0 cancels in full"
// @Success  200 {object} domain.Registration
// @Failure  404 {object} ErrorResponse
// @Router   /registrations/{id} [delete]
func handleCancelRegistration(svcs *service.Services) gin.HandlerFunc {
	return func(c *gin.Context) {
		registrationID, ok := parseUUIDParam(c, "id")
		if !ok {
			return
		}

		var newSeatCount *int
		if raw := c.Query("new_seat_count"); raw != "" {
			v, err := strconv.Atoi(raw)
			if err != nil || v < 0 {
				badRequest(c, "invalid new_seat_count")
				return
			}
			newSeatCount = &v
		}

		reg, err := svcs.Registration.CancelRegistration(c.Request.Context(), registrationID, newSeatCount)
		if err != nil {
			respondErr(c, err)
			return
		}
		c.JSON(http.StatusOK, reg)
	}
}

// @Summary  List a user's registrations in an organization
// @Param    org               path   string  true  "Organization ID (uuid)"
// @Param    user_id           query  string  true  "User ID"
// @Param    first             query  int     false "page size"
// @Param    after             query  string  false "cursor"
// @Param    include_cancelled query  bool    false "include cancelled"
// @Success  200 {object} repository.CursorResult[domain.Registration]
// @Router   /organizations/{org}/registrations [get]
func handleListRegistrations(svcs *service.Services) gin.HandlerFunc {
	return func(c *gin.Context) {
		orgID, ok := parseUUIDParam(c, "org")
		if !ok {
			return
		}
		userID := c.Query("user_id")
		if userID == "" {
			badRequest(c, "user_id is required")
			return
		}
		first := parseIntDefault(c.Query("first"), 0)
		includeCancelled := c.Query("include_cancelled") == "true"

		res, err := svcs.Query.ListRegistrations(
			c.Request.Context(),
			orgID,
			userID,
			first,
			c.Query("after"),
			includeCancelled,
		)
		if err != nil {
			respondErr(c, err)
			return
		}
		c.JSON(http.StatusOK, res)
	}
}

// --- Helpers ---

func parseUUIDParam(c *gin.Context, name string) (uuid.UUID, bool) {
	id, err := uuid.Parse(c.Param(name))
	if err != nil {
		badRequest(c, "invalid "+name)
		return uuid.Nil, false
	}
	return id, true
}

func parseIntDefault(s string, def int) int {
	if s == "" {
		return def
	}
	v, err := strconv.Atoi(s)
	if err != nil {
		return def
	}
	return v
}

func badRequest(c *gin.Context, msg string) {
	c.JSON(http.StatusBadRequest, ErrorResponse{Error: msg})
}

// eventChanges maps a PATCH body onto the domain change set, keeping the
// provided-vs-absent distinction for the recurrence pattern.
func eventChanges(req UpdateEventRequest) (domain.EventChanges, error) {
	ch := domain.EventChanges{
		Title:       req.Title,
		Description: req.Description,
		Location:    req.Location,
		MaxCapacity: req.MaxCapacity,
	}

	if req.StartDate != nil {
		start, err := parseRFC3339(*req.StartDate)
		if err != nil {
			return domain.EventChanges{}, errors.New("invalid start_date (RFC3339)")
		}
		ch.StartDate = &start
	}

	if req.EndDate != nil {
		end, err := parseRFC3339(*req.EndDate)
		if err != nil {
			return domain.EventChanges{}, errors.New("invalid end_date (RFC3339)")
		}
		ch.EndDate = &end
	}

	if len(req.RecurrencePattern) > 0 {
		ch.PatternProvided = true
		if string(req.RecurrencePattern) != "null" {
			var p domain.RecurrencePattern
			if err := json.Unmarshal(req.RecurrencePattern, &p); err != nil {
				return domain.EventChanges{}, errors.New("invalid recurrence_pattern")
			}
			ch.RecurrencePattern = &p
		}
	}

	return ch, nil
}

func respondErr(c *gin.Context, err error) {
	if err == nil {
		c.Status(http.StatusNoContent)
		return
	}

	var patternErr events.InvalidRecurrencePatternError
	if errors.As(err, &patternErr) {
		c.JSON(http.StatusBadRequest, InvalidPatternResponse{
			Error:  "invalid recurrence pattern",
			Issues: patternErr.Issues,
		})
		return
	}

	var conflictErr registration.ConflictDetectedError
	if errors.As(err, &conflictErr) {
		c.JSON(http.StatusConflict, ConflictResponse{
			Error:        "conflicting registration",
			OccurrenceID: conflictErr.OccurrenceID.String(),
			EventTitle:   conflictErr.EventTitle,
			StartDate:    conflictErr.StartDate,
			EndDate:      conflictErr.EndDate,
		})
		return
	}

	switch {
	// organization service
	case errors.Is(err, organization.ErrOrganizationNotFound):
		c.JSON(http.StatusNotFound, ErrorResponse{Error: "organization not found"})
	case errors.Is(err, organization.ErrSlugTaken):
		c.JSON(http.StatusConflict, ErrorResponse{Error: "slug already taken"})
	// events service
	case errors.Is(err, events.ErrEventNotFound):
		c.JSON(http.StatusNotFound, ErrorResponse{Error: "event not found"})
	// query service
	case errors.Is(err, query.ErrEventNotFound):
		c.JSON(http.StatusNotFound, ErrorResponse{Error: "event not found"})
	// registration service
	case errors.Is(err, registration.ErrOccurrenceNotFound):
		c.JSON(http.StatusNotFound, ErrorResponse{Error: "occurrence not found"})
	case errors.Is(err, registration.ErrRegistrationNotFound):
		c.JSON(http.StatusNotFound, ErrorResponse{Error: "registration not found"})
	case errors.Is(err, registration.ErrEventCancelled):
		c.JSON(http.StatusConflict, ErrorResponse{Error: "event is cancelled"})
	case errors.Is(err, registration.ErrOccurrenceInPast):
		c.JSON(http.StatusConflict, ErrorResponse{Error: "occurrence is in the past"})
	case errors.Is(err, registration.ErrAlreadyRegistered):
		c.JSON(http.StatusConflict, ErrorResponse{Error: "already registered"})
	case errors.Is(err, registration.ErrCapacityExceeded):
		c.JSON(http.StatusConflict, ErrorResponse{Error: "capacity exceeded"})
	case errors.Is(err, registration.ErrRateLimited):
		c.Header("Retry-After", "60")
		c.JSON(http.StatusTooManyRequests, ErrorResponse{Error: "rate limited"})
	default:
		c.JSON(http.StatusInternalServerError, ErrorResponse{Error: "internal error"})
	}
}
