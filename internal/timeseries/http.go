// Copyright (c) 2026 Yomira. All rights reserved.
// Author: tai.buivan.jp@gmail.com

package timeseries

import (
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"

	requestutil "github.com/anchorgraph/corestack/internal/platform/request"
	"github.com/anchorgraph/corestack/internal/platform/respond"
	"github.com/anchorgraph/corestack/internal/platform/validate"
	"github.com/anchorgraph/corestack/pkg/pagination"
)

// Handler is the chi handler surface over a [Coordinator].
type Handler struct {
	coordinator *Coordinator
}

// NewHandler constructs a Handler over coordinator.
func NewHandler(coordinator *Coordinator) *Handler {
	return &Handler{coordinator: coordinator}
}

// RegisterRoutes mounts every time-series endpoint onto router.
func (handler *Handler) RegisterRoutes(router chi.Router) {
	router.Post("/", handler.initTimeSeries)
	router.Get("/", handler.listTimeSeries)
	router.Post("/bulk", handler.bulkInitTimeSeries)
	router.Get("/{id}", handler.getSeries)
	router.Post("/{id}/data", handler.addData)
	router.Get("/data", handler.getWithinBounds)
	router.Delete("/{id}/rows", handler.deleteRows)
	router.Delete("/{id}", handler.deleteTimeSeries)
	router.Delete("/data/{dataId}", handler.deleteIndividual)
}

type columnClassInput string

func (c columnClassInput) toColumnClass() ColumnClass {
	switch strings.ToLower(string(c)) {
	case "integer":
		return ColumnInteger
	case "string":
		return ColumnString
	case "boolean":
		return ColumnBoolean
	case "datetime":
		return ColumnDateTime
	default:
		return ColumnDouble
	}
}

type initSeriesRequest struct {
	SeriesID    string   `json:"series_id"`
	DataIDs     []string `json:"data_ids"`
	DataClasses []string `json:"data_classes"`
	DBURL       string   `json:"db_url"`
	TimeUnit    string   `json:"time_unit,omitempty"`
}

func (handler *Handler) initTimeSeries(writer http.ResponseWriter, request *http.Request) {
	var body initSeriesRequest
	if err := requestutil.DecodeJSON(request, &body); err != nil {
		respond.Error(writer, request, err)
		return
	}

	v := &validate.Validator{}
	v.Required("series_id", body.SeriesID).IRI("series_id", body.SeriesID)
	v.Required("db_url", body.DBURL)
	v.NotEmptySlice("data_ids", body.DataIDs)
	v.IRISlice("data_ids", body.DataIDs)
	v.EqualLen("data_ids", body.DataIDs, "data_classes", body.DataClasses)
	if err := v.Err(); err != nil {
		respond.Error(writer, request, err)
		return
	}

	classes := make([]ColumnClass, len(body.DataClasses))
	for i, c := range body.DataClasses {
		classes[i] = columnClassInput(c).toColumnClass()
	}

	spec := InitSpec{SeriesID: body.SeriesID, DataIDs: body.DataIDs, DBURL: body.DBURL, TimeUnit: body.TimeUnit}
	if err := handler.coordinator.InitTimeSeries(request.Context(), spec, classes); err != nil {
		respond.Error(writer, request, err)
		return
	}

	respond.Created(writer, spec)
}

func (handler *Handler) bulkInitTimeSeries(writer http.ResponseWriter, request *http.Request) {
	var body []initSeriesRequest
	if err := requestutil.DecodeJSON(request, &body); err != nil {
		respond.Error(writer, request, err)
		return
	}

	v := &validate.Validator{}
	v.Custom("specs", len(body) == 0, "Must not be empty")

	specs := make([]InitSpec, len(body))
	classes := make([][]ColumnClass, len(body))
	for i, item := range body {
		v.Required("series_id", item.SeriesID).IRI("series_id", item.SeriesID)
		v.EqualLen("data_ids", item.DataIDs, "data_classes", item.DataClasses)

		specs[i] = InitSpec{SeriesID: item.SeriesID, DataIDs: item.DataIDs, DBURL: item.DBURL, TimeUnit: item.TimeUnit}
		classes[i] = make([]ColumnClass, len(item.DataClasses))
		for j, c := range item.DataClasses {
			classes[i][j] = columnClassInput(c).toColumnClass()
		}
	}
	if err := v.Err(); err != nil {
		respond.Error(writer, request, err)
		return
	}

	if err := handler.coordinator.BulkInitTimeSeries(request.Context(), specs, classes); err != nil {
		respond.Error(writer, request, err)
		return
	}

	respond.Created(writer, specs)
}

func (handler *Handler) listTimeSeries(writer http.ResponseWriter, request *http.Request) {
	params := pagination.FromRequest(request)

	ids, total, err := handler.coordinator.ListSeries(request.Context(), params.Offset(), params.Limit)
	if err != nil {
		respond.Error(writer, request, err)
		return
	}

	respond.Paginated(writer, ids, pagination.NewMeta(params.Page, params.Limit, total))
}

func (handler *Handler) getSeries(writer http.ResponseWriter, request *http.Request) {
	seriesID := requestutil.ID(request, "id")

	series, err := handler.coordinator.GetSeries(request.Context(), seriesID)
	if err != nil {
		respond.Error(writer, request, err)
		return
	}
	respond.OK(writer, series)
}

type addDataRequest struct {
	DataIDs []string         `json:"data_ids"`
	Times   []time.Time      `json:"times"`
	Values  map[string][]any `json:"values"`
}

func (handler *Handler) addData(writer http.ResponseWriter, request *http.Request) {
	var body addDataRequest
	if err := requestutil.DecodeJSON(request, &body); err != nil {
		respond.Error(writer, request, err)
		return
	}

	v := &validate.Validator{}
	v.NotEmptySlice("data_ids", body.DataIDs)
	if err := v.Err(); err != nil {
		respond.Error(writer, request, err)
		return
	}

	sample := Sample{DataIDs: body.DataIDs, Times: body.Times, Values: body.Values}
	if err := handler.coordinator.AddData(request.Context(), sample); err != nil {
		respond.Error(writer, request, err)
		return
	}

	respond.NoContent(writer)
}

func (handler *Handler) getWithinBounds(writer http.ResponseWriter, request *http.Request) {
	query := request.URL.Query()
	dataIDs := query["data_id"]

	v := &validate.Validator{}
	v.NotEmptySlice("data_id", dataIDs)
	if err := v.Err(); err != nil {
		respond.Error(writer, request, err)
		return
	}

	bounds, err := parseBounds(query)
	if err != nil {
		respond.Error(writer, request, err)
		return
	}

	rows, err := handler.coordinator.GetWithinBounds(request.Context(), dataIDs, bounds)
	if err != nil {
		respond.Error(writer, request, err)
		return
	}
	respond.OK(writer, rows)
}

func (handler *Handler) deleteRows(writer http.ResponseWriter, request *http.Request) {
	dataID := requestutil.ID(request, "id")

	bounds, err := parseBounds(request.URL.Query())
	if err != nil {
		respond.Error(writer, request, err)
		return
	}
	if bounds.Lower == nil || bounds.Upper == nil {
		respond.Error(writer, request, validate.RequiredError("lower", "lower and upper bounds are both required"))
		return
	}

	if err := handler.coordinator.DeleteRows(request.Context(), dataID, *bounds.Lower, *bounds.Upper); err != nil {
		respond.Error(writer, request, err)
		return
	}
	respond.NoContent(writer)
}

func (handler *Handler) deleteTimeSeries(writer http.ResponseWriter, request *http.Request) {
	seriesID := requestutil.ID(request, "id")

	if err := handler.coordinator.DeleteTimeSeries(request.Context(), seriesID); err != nil {
		respond.Error(writer, request, err)
		return
	}
	respond.NoContent(writer)
}

func (handler *Handler) deleteIndividual(writer http.ResponseWriter, request *http.Request) {
	dataID := requestutil.Param(request, "dataId")

	if err := handler.coordinator.DeleteIndividual(request.Context(), dataID); err != nil {
		respond.Error(writer, request, err)
		return
	}
	respond.NoContent(writer)
}

func parseBounds(query map[string][]string) (Bounds, error) {
	var bounds Bounds
	if vals, ok := query["lower"]; ok && len(vals) > 0 && vals[0] != "" {
		t, err := time.Parse(time.RFC3339, vals[0])
		if err != nil {
			return Bounds{}, validate.RequiredError("lower", "must be an RFC3339 timestamp")
		}
		bounds.Lower = &t
	}
	if vals, ok := query["upper"]; ok && len(vals) > 0 && vals[0] != "" {
		t, err := time.Parse(time.RFC3339, vals[0])
		if err != nil {
			return Bounds{}, validate.RequiredError("upper", "must be an RFC3339 timestamp")
		}
		bounds.Upper = &t
	}
	return bounds, nil
}
