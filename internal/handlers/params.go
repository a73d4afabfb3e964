package handlers

import (
	stderrors "errors"
	"fmt"
	"net/http"
	"net/url"
	"reflect"
	"strconv"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/starfederation/datastar-go/datastar"

	"royalty-dashboard/internal/errors"
	"royalty-dashboard/internal/services"
)

// Query parameter names shared by the JSON API and the export endpoints.
const (
	paramFrom           = "from"
	paramTo             = "to"
	paramDistributor    = "distributor"
	paramClassification = "classification"
	paramStore          = "store"
	paramCountry        = "country"
	paramSearch         = "q"
	paramMinRevenue     = "min_revenue"
	paramMinUnits       = "min_units"
)

// FilterRequest is the wire form of the dashboard filters. Datastar signals
// decode into it directly; query strings are mapped onto it by parseQuery.
type FilterRequest struct {
	From            string   `json:"from" validate:"omitempty,datetime=2006-01-02"`
	To              string   `json:"to" validate:"omitempty,datetime=2006-01-02"`
	Period          []string `json:"period" validate:"max=2,dive,datetime=2006-01-02"`
	Distributors    []string `json:"distributors" validate:"dive,max=512"`
	Classifications []string `json:"classifications" validate:"dive,max=512"`
	Stores          []string `json:"stores" validate:"dive,max=512"`
	Countries       []string `json:"countries" validate:"dive,max=512"`
	Search          string   `json:"search" validate:"max=256"`
	MinRevenue      float64  `json:"minRevenue" validate:"gte=0"`
	MinUnits        float64  `json:"minUnits" validate:"gte=0"`
}

var validate = newValidator()

func newValidator() *validator.Validate {
	v := validator.New(validator.WithRequiredStructEnabled())
	v.RegisterTagNameFunc(func(f reflect.StructField) string {
		name, _, _ := strings.Cut(f.Tag.Get("json"), ",")
		if name == "-" {
			return ""
		}
		return name
	})
	return v
}

// Validate checks the request and reports per-field failures as a
// validation AppError.
func (f *FilterRequest) Validate() error {
	err := validate.Struct(f)
	if err == nil {
		return nil
	}

	var fieldErrs validator.ValidationErrors
	if !stderrors.As(err, &fieldErrs) {
		return errors.BadRequestWrap(err, "Invalid filter parameters")
	}

	appErr := errors.Validation("Invalid filter parameters")
	for _, fe := range fieldErrs {
		appErr.WithField(fe.Field(), describe(fe))
	}
	return appErr
}

func describe(fe validator.FieldError) string {
	switch fe.Tag() {
	case "datetime":
		return "must be a date in YYYY-MM-DD format"
	case "gte":
		return "must be greater than or equal to " + fe.Param()
	case "max":
		return "must be at most " + fe.Param() + " long"
	}
	return "failed on " + fe.Tag()
}

// dateRange resolves the requested range. An explicit period wins over
// from/to; a single date yields a one-element range, which the filter treats
// as the full range.
func (f *FilterRequest) dateRange() []string {
	if len(f.Period) > 0 {
		return f.Period
	}
	var dates []string
	if f.From != "" {
		dates = append(dates, f.From)
	}
	if f.To != "" {
		dates = append(dates, f.To)
	}
	return dates
}

// Params converts a validated request into filter parameters.
func (f *FilterRequest) Params() (services.FilterParams, error) {
	p := services.FilterParams{
		Distributors:    f.Distributors,
		Classifications: f.Classifications,
		Stores:          f.Stores,
		Countries:       f.Countries,
		Search:          f.Search,
		MinRevenue:      f.MinRevenue,
		MinUnits:        f.MinUnits,
	}

	for _, s := range f.dateRange() {
		d, err := time.Parse(time.DateOnly, s)
		if err != nil {
			return services.FilterParams{}, errors.BadRequestWrap(err, fmt.Sprintf("Invalid date %q", s))
		}
		p.DateRange = append(p.DateRange, d)
	}
	return p, nil
}

// Query encodes the request back into the query-string form.
func (f *FilterRequest) Query() url.Values {
	q := url.Values{}
	dates := f.dateRange()
	if len(dates) > 0 {
		q.Set(paramFrom, dates[0])
	}
	if len(dates) > 1 {
		q.Set(paramTo, dates[1])
	}
	for _, v := range f.Distributors {
		q.Add(paramDistributor, v)
	}
	for _, v := range f.Classifications {
		q.Add(paramClassification, v)
	}
	for _, v := range f.Stores {
		q.Add(paramStore, v)
	}
	for _, v := range f.Countries {
		q.Add(paramCountry, v)
	}
	if s := strings.TrimSpace(f.Search); s != "" {
		q.Set(paramSearch, s)
	}
	if f.MinRevenue > 0 {
		q.Set(paramMinRevenue, strconv.FormatFloat(f.MinRevenue, 'f', -1, 64))
	}
	if f.MinUnits > 0 {
		q.Set(paramMinUnits, strconv.FormatFloat(f.MinUnits, 'f', -1, 64))
	}
	return q
}

// parseQuery reads filters from repeated query parameters.
func parseQuery(r *http.Request) (*FilterRequest, error) {
	q := r.URL.Query()
	f := &FilterRequest{
		From:            strings.TrimSpace(q.Get(paramFrom)),
		To:              strings.TrimSpace(q.Get(paramTo)),
		Distributors:    values(q, paramDistributor),
		Classifications: values(q, paramClassification),
		Stores:          values(q, paramStore),
		Countries:       values(q, paramCountry),
		Search:          q.Get(paramSearch),
	}

	var err error
	if f.MinRevenue, err = number(q, paramMinRevenue); err != nil {
		return nil, err
	}
	if f.MinUnits, err = number(q, paramMinUnits); err != nil {
		return nil, err
	}

	if err := f.Validate(); err != nil {
		return nil, err
	}
	return f, nil
}

// parseSignals reads filters from the Datastar signal store sent with the
// request.
func parseSignals(r *http.Request) (*FilterRequest, error) {
	f := &FilterRequest{}
	if err := datastar.ReadSignals(r, f); err != nil {
		return nil, errors.BadRequestWrap(err, "Invalid signals")
	}
	if err := f.Validate(); err != nil {
		return nil, err
	}
	return f, nil
}

func values(q url.Values, key string) []string {
	var out []string
	for _, v := range q[key] {
		if v = strings.TrimSpace(v); v != "" {
			out = append(out, v)
		}
	}
	return out
}

func number(q url.Values, key string) (float64, error) {
	s := strings.TrimSpace(q.Get(key))
	if s == "" {
		return 0, nil
	}
	v, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return 0, errors.Validation("Invalid filter parameters").WithField(key, "must be a number")
	}
	return v, nil
}
