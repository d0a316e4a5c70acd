package httpapi

import (
	"errors"
	"strconv"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v2"

	"github.com/i474232898/earth-imagery-service/internal/common"
	"github.com/i474232898/earth-imagery-service/internal/geocode"
	"github.com/i474232898/earth-imagery-service/internal/imagery"
)

var validate = validator.New()

// Defaults carries the request defaults the API applies before handing off
// to the service.
type Defaults struct {
	CloudCoverMax float64
	FOVDegrees    float64
}

// RegisterRoutes wires the HTTP handlers into the Fiber app.
func RegisterRoutes(app *fiber.App, service *imagery.Service, geo *geocode.Client, defaults Defaults) {
	v1 := app.Group("/api/v1")

	v1.Get("/imagery", func(c *fiber.Ctx) error {
		req, err := buildRequest(c, geo, defaults)
		if err != nil {
			return fiber.NewError(fiber.StatusBadRequest, err.Error())
		}

		result, avail, err := service.GetImage(c.Context(), req)
		if err != nil {
			return mapServiceError(err)
		}

		if result == nil {
			return c.Status(fiber.StatusNotFound).JSON(unavailablePayload(avail))
		}

		c.Set("X-Request-Id", result.RequestID)
		c.Set("X-Resolved-Date", common.FormatDate(result.ResolvedDate))
		if len(result.CandidateDates) > 0 {
			c.Set("X-Candidate-Dates", strings.Join(common.FormatDates(result.CandidateDates), ","))
		}
		if result.ClosestDate != nil {
			c.Set("X-Closest-Date", common.FormatDate(*result.ClosestDate))
		}
		if result.Fallback {
			c.Set("X-Fallback", "true")
		}

		contentType := result.ContentType
		if contentType == "" {
			contentType = "image/jpeg"
		}
		c.Set(fiber.HeaderContentType, contentType)
		return c.Send(result.Data)
	})

	v1.Get("/imagery/availability", func(c *fiber.Ctx) error {
		req, err := buildRequest(c, geo, defaults)
		if err != nil {
			return fiber.NewError(fiber.StatusBadRequest, err.Error())
		}

		avail, err := service.CheckAvailability(c.Context(), req)
		if err != nil {
			return mapServiceError(err)
		}

		return c.JSON(availabilityPayload(avail))
	})
}

// imageryQuery holds the query parameters shared by both imagery endpoints.
type imageryQuery struct {
	Lat           *float64 `validate:"omitempty,gte=-90,lte=90"`
	Lon           *float64 `validate:"omitempty,gte=-180,lte=180"`
	Place         string
	Date          string   `validate:"required"`
	Time          string
	Provider      string   `validate:"required,oneof=nasa sentinel gibs"`
	Resolution    int      `validate:"required,gt=0"`
	FOV           float64  `validate:"omitempty,gt=0"`
	CloudCoverMax *float64 `validate:"omitempty,gte=0,lte=100"`
}

func (q *imageryQuery) bind(c *fiber.Ctx) error {
	var err error

	if s := c.Query("lat"); s != "" {
		if q.Lat, err = parseFloatPtr(s); err != nil {
			return errors.New("invalid lat")
		}
	}
	if s := c.Query("lon"); s != "" {
		if q.Lon, err = parseFloatPtr(s); err != nil {
			return errors.New("invalid lon")
		}
	}
	q.Place = c.Query("place")
	q.Date = c.Query("date")
	q.Time = c.Query("time")
	q.Provider = c.Query("provider")
	q.Resolution = c.QueryInt("resolution")
	q.FOV = c.QueryFloat("fov")
	if s := c.Query("max_cloud_cover"); s != "" {
		if q.CloudCoverMax, err = parseFloatPtr(s); err != nil {
			return errors.New("invalid max_cloud_cover")
		}
	}

	return validate.Struct(q)
}

func parseFloatPtr(s string) (*float64, error) {
	f, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return nil, err
	}
	return &f, nil
}

func buildRequest(c *fiber.Ctx, geo *geocode.Client, defaults Defaults) (imagery.ImageRequest, error) {
	var q imageryQuery
	if err := q.bind(c); err != nil {
		return imagery.ImageRequest{}, err
	}

	var lat, lon float64
	switch {
	case q.Lat != nil && q.Lon != nil:
		lat, lon = *q.Lat, *q.Lon
	case q.Place != "":
		var err error
		lat, lon, err = geo.Lookup(q.Place)
		if err != nil {
			return imagery.ImageRequest{}, err
		}
	default:
		return imagery.ImageRequest{}, errors.New("either lat+lon or place is required")
	}

	date, err := common.ParseDate(q.Date)
	if err != nil {
		return imagery.ImageRequest{}, err
	}

	req := imagery.ImageRequest{
		Latitude:      lat,
		Longitude:     lon,
		Date:          date,
		FOVDegrees:    q.FOV,
		Resolution:    q.Resolution,
		Provider:      imagery.ProviderID(q.Provider),
		CloudCoverMax: defaults.CloudCoverMax,
	}
	if req.FOVDegrees == 0 {
		req.FOVDegrees = defaults.FOVDegrees
	}
	if q.CloudCoverMax != nil {
		req.CloudCoverMax = *q.CloudCoverMax
	}
	if q.Time != "" {
		ts, err := time.Parse(time.RFC3339, q.Time)
		if err != nil {
			return imagery.ImageRequest{}, errors.New("invalid time; use RFC3339")
		}
		req.Time = &ts
	}

	return req, nil
}

func availabilityPayload(avail imagery.AvailabilityResult) fiber.Map {
	payload := fiber.Map{
		"provider":       avail.Provider,
		"available":      avail.Available,
		"candidateDates": common.FormatDates(avail.CandidateDates),
	}
	if avail.ResolvedDate != nil {
		payload["resolvedDate"] = common.FormatDate(*avail.ResolvedDate)
	}
	if avail.ClosestDate != nil {
		payload["closestDate"] = common.FormatDate(*avail.ClosestDate)
	}
	if avail.Reason != "" {
		payload["reason"] = avail.Reason
	}
	if len(avail.Scenes) > 0 {
		payload["scenes"] = avail.Scenes
	}
	return payload
}

func unavailablePayload(avail imagery.AvailabilityResult) fiber.Map {
	payload := availabilityPayload(avail)
	// Unavailable responses must be distinguishable from transient errors:
	// the caller gets alternatives, not a retry hint.
	payload["available"] = false
	return payload
}

// mapServiceError converts the error taxonomy into structured HTTP
// failures; raw transport errors never reach the client.
func mapServiceError(err error) error {
	switch {
	case errors.Is(err, imagery.ErrInvalidCoordinate):
		return fiber.NewError(fiber.StatusBadRequest, err.Error())
	case errors.Is(err, imagery.ErrNoImageryFound):
		return fiber.NewError(fiber.StatusNotFound, err.Error())
	case errors.Is(err, imagery.ErrAuthentication),
		errors.Is(err, imagery.ErrUpstreamUnavailable),
		errors.Is(err, imagery.ErrParse):
		return fiber.NewError(fiber.StatusBadGateway, err.Error())
	}

	var availErr *imagery.AvailabilityError
	if errors.As(err, &availErr) {
		return fiber.NewError(fiber.StatusBadGateway, availErr.Error())
	}

	return fiber.NewError(fiber.StatusInternalServerError, "failed to fetch imagery")
}
