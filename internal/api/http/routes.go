package httpapi

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v2"

	"github.com/i474232898/skisignal/internal/resort"
	"github.com/i474232898/skisignal/internal/weather"
)

var validate = validator.New()

// ForecastService is the part of weather.Service the handlers use.
type ForecastService interface {
	Resorts() []resort.Resort
	GetOrFetch(ctx context.Context, resortID string) (weather.ResortForecast, error)
	BestDay(ctx context.Context) (weather.BestDayReport, error)
	Score(day weather.NormalizedDay) weather.ScoreResult
}

// RegisterRoutes wires the HTTP handlers into the Fiber app.
func RegisterRoutes(app fiber.Router, service ForecastService) {
	app.Get("/resorts", func(c *fiber.Ctx) error {
		return c.JSON(service.Resorts())
	})

	app.Get("/score-day", func(c *fiber.Ctx) error {
		var q scoreDayQuery
		if err := q.bind(c); err != nil {
			return fiber.NewError(fiber.StatusBadRequest, err.Error())
		}

		day, err := weather.ParseDay(q.Day, weather.Tomorrow)
		if err != nil {
			return err
		}

		forecast, err := service.GetOrFetch(c.UserContext(), q.Resort)
		if err != nil {
			return err
		}

		return c.JSON(scoreDayResponse{
			Resort:    forecast.Resort.ID,
			Image:     forecast.Resort.Image,
			Day:       day,
			DayReport: forecast.ForDay(day),
		})
	})

	app.Get("/best-day", func(c *fiber.Ctx) error {
		report, err := service.BestDay(c.UserContext())
		if err != nil {
			return err
		}
		return c.JSON(report)
	})

	app.Post("/score-day-adhoc", func(c *fiber.Ctx) error {
		var req adhocRequest
		if err := c.BodyParser(&req); err != nil {
			return fiber.NewError(fiber.StatusBadRequest, "invalid request body")
		}
		if err := validate.Struct(req); err != nil {
			return fiber.NewError(fiber.StatusBadRequest, validationMessage(err))
		}

		day, err := req.toDay()
		if err != nil {
			return err
		}
		return c.JSON(service.Score(day))
	})
}

// scoreDayQuery holds query parameters for the score-day endpoint.
type scoreDayQuery struct {
	Resort string `query:"resort" validate:"required"`
	Day    string `query:"day" validate:"omitempty,oneof=today tomorrow"`
}

func (q *scoreDayQuery) bind(c *fiber.Ctx) error {
	q.Resort = strings.TrimSpace(c.Query("resort"))
	q.Day = strings.ToLower(strings.TrimSpace(c.Query("day")))

	if err := validate.Struct(q); err != nil {
		return errors.New(validationMessage(err))
	}
	return nil
}

type scoreDayResponse struct {
	Resort string      `json:"resort"`
	Image  string      `json:"image,omitempty"`
	Day    weather.Day `json:"day"`
	weather.DayReport
}

// adhocRequest is the body of POST /score-day-adhoc. Pointers tell an absent
// field apart from an explicit zero.
type adhocRequest struct {
	Snow      *float64        `json:"snow" validate:"required"`
	DayOfWeek json.RawMessage `json:"dayOfWeek" validate:"required"`
	FreshSnow *float64        `json:"freshSnow"`
	Temp      *float64        `json:"temp"`
	Wind      *float64        `json:"wind"`
}

func (r adhocRequest) toDay() (weather.NormalizedDay, error) {
	dow, err := parseDayOfWeek(r.DayOfWeek)
	if err != nil {
		return weather.NormalizedDay{}, err
	}
	return weather.NormalizedDay{
		SnowDepthCm:  *r.Snow,
		FreshSnowCm:  valueOrZero(r.FreshSnow),
		TemperatureC: valueOrZero(r.Temp),
		WindSpeedKmh: valueOrZero(r.Wind),
		DayOfWeek:    dow,
	}, nil
}

// parseDayOfWeek accepts a JSON string ("Saturday", "sat", "6") or a JSON number 0..6.
func parseDayOfWeek(raw json.RawMessage) (weather.Weekday, error) {
	var s string
	if err := json.Unmarshal(raw, &s); err == nil {
		return weather.ParseWeekday(s)
	}
	var n int
	if err := json.Unmarshal(raw, &n); err == nil {
		return weather.ParseWeekday(strconv.Itoa(n))
	}
	return 0, fmt.Errorf("%w: dayOfWeek must be a weekday name or a number 0..6", weather.ErrValidation)
}

func valueOrZero(p *float64) float64 {
	if p == nil {
		return 0
	}
	return *p
}

// validationMessage turns validator errors into a short client-facing message.
func validationMessage(err error) string {
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return err.Error()
	}
	msgs := make([]string, 0, len(verrs))
	for _, fe := range verrs {
		switch fe.Tag() {
		case "required":
			msgs = append(msgs, lowerFirst(fe.Field())+" is required")
		case "oneof":
			msgs = append(msgs, lowerFirst(fe.Field())+" must be one of: "+fe.Param())
		default:
			msgs = append(msgs, lowerFirst(fe.Field())+" is invalid")
		}
	}
	return strings.Join(msgs, "; ")
}

func lowerFirst(s string) string {
	if s == "" {
		return s
	}
	return strings.ToLower(s[:1]) + s[1:]
}
