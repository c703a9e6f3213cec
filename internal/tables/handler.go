// Package tables serves the query and mutation engines over HTTP with
// PostgREST-style query strings.
package tables

import (
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/evently-demo/backend/internal/client"
	"github.com/evently-demo/backend/internal/engine"
	"github.com/evently-demo/backend/internal/models"
	"github.com/evently-demo/backend/pkg/response"
)

// SingleObjectMediaType in the Accept header asks for exactly one row.
const SingleObjectMediaType = "application/vnd.pgrst.object+json"

// reserved query parameters that are not column filters.
var reserved = map[string]bool{"select": true, "order": true, "limit": true, "columns": true}

// Handler handles /rest/v1/:table.
type Handler struct {
	client *client.Client
	logger *zap.Logger
}

// NewHandler creates a table handler.
func NewHandler(c *client.Client, logger *zap.Logger) *Handler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Handler{client: c, logger: logger}
}

// Register mounts the table routes on g.
func (h *Handler) Register(g *gin.RouterGroup) {
	g.GET("/:table", h.Select)
	g.POST("/:table", h.Insert)
	g.PATCH("/:table", h.Update)
	g.DELETE("/:table", h.Delete)
}

// Select handles GET /rest/v1/:table.
func (h *Handler) Select(c *gin.Context) {
	params := c.Request.URL.Query()
	q := h.client.From(c.Param("table")).SelectString(params.Get("select"))

	preds, err := parseFilters(params)
	if err != nil {
		response.BadRequest(c, err.Error())
		return
	}
	for _, p := range preds {
		q = q.Where(p)
	}
	if o := params.Get("order"); o != "" {
		field, ascending := parseOrder(o)
		q = q.Order(field, ascending)
	}
	if l := params.Get("limit"); l != "" {
		n, err := strconv.Atoi(l)
		if err != nil {
			response.BadRequest(c, "invalid limit: "+l)
			return
		}
		q = q.Limit(n)
	}
	single := wantsSingle(c)
	if single {
		q = q.Single()
	}
	if strings.Contains(c.GetHeader("Prefer"), "count=exact") {
		q = q.Count()
	}

	res := q.Execute(c.Request.Context())
	if res.Count != nil && res.Error == nil {
		c.Header("Content-Range", contentRange(len(res.Rows()), *res.Count))
	}
	h.write(c, http.StatusOK, res)
}

// Insert handles POST /rest/v1/:table. The body is one object or an array
// whose first element is inserted.
func (h *Handler) Insert(c *gin.Context) {
	rows, err := bindRows(c)
	if err != nil {
		response.BadRequest(c, "invalid request: "+err.Error())
		return
	}
	res := h.client.From(c.Param("table")).Insert(rows...).Execute(c.Request.Context())
	h.write(c, http.StatusCreated, res)
}

// Update handles PATCH /rest/v1/:table.
func (h *Handler) Update(c *gin.Context) {
	var overrides models.Record
	if err := c.ShouldBindJSON(&overrides); err != nil {
		response.BadRequest(c, "invalid request: "+err.Error())
		return
	}
	preds, err := parseFilters(c.Request.URL.Query())
	if err != nil {
		response.BadRequest(c, err.Error())
		return
	}
	u := h.client.From(c.Param("table")).Update(overrides)
	for _, p := range preds {
		u = u.Where(p)
	}
	h.write(c, http.StatusOK, u.Execute(c.Request.Context()))
}

// Delete handles DELETE /rest/v1/:table.
func (h *Handler) Delete(c *gin.Context) {
	preds, err := parseFilters(c.Request.URL.Query())
	if err != nil {
		response.BadRequest(c, err.Error())
		return
	}
	d := h.client.From(c.Param("table")).Delete()
	for _, p := range preds {
		d = d.Where(p)
	}
	h.write(c, http.StatusOK, d.Execute(c.Request.Context()))
}

func (h *Handler) write(c *gin.Context, status int, res models.Result) {
	if res.Error != nil {
		if res.Error.Code == models.CodeInternal {
			h.logger.Error("table operation failed", zap.String("table", c.Param("table")), zap.Error(res.Error))
		}
		response.Fail(c, StatusFor(res.Error), res.Error.Code, res.Error.Message)
		return
	}
	if !res.Persisted {
		c.Header("X-Storage-Warning", "change applied but not persisted")
	}
	c.JSON(status, response.Body{Data: res.Data, Count: res.Count})
}

// StatusFor maps an engine error to the HTTP status PostgREST would use.
func StatusFor(err *models.Error) int {
	switch {
	case errors.Is(err, models.ErrNotFound):
		return http.StatusNotAcceptable
	case errors.Is(err, models.ErrUnknownTable):
		return http.StatusNotFound
	case errors.Is(err, models.ErrDuplicate):
		return http.StatusConflict
	case errors.Is(err, models.ErrInvalidCredentials), err.Code == models.CodeInvalidInput:
		return http.StatusBadRequest
	default:
		return http.StatusInternalServerError
	}
}

// parseFilters turns field=eq.v and field=in.(a,b) parameters into
// predicates.
func parseFilters(params url.Values) ([]engine.Predicate, error) {
	var preds []engine.Predicate
	for field, values := range params {
		if reserved[field] {
			continue
		}
		for _, v := range values {
			op, arg, ok := strings.Cut(v, ".")
			if !ok {
				return nil, fmt.Errorf("invalid filter %s=%s", field, v)
			}
			switch op {
			case "eq":
				preds = append(preds, engine.EqText(field, arg))
			case "in":
				list := strings.TrimSuffix(strings.TrimPrefix(arg, "("), ")")
				var items []string
				if list != "" {
					for _, it := range strings.Split(list, ",") {
						items = append(items, strings.Trim(strings.TrimSpace(it), `"`))
					}
				}
				preds = append(preds, engine.InText(field, items))
			default:
				return nil, fmt.Errorf("unsupported operator %q on %s", op, field)
			}
		}
	}
	return preds, nil
}

// parseOrder reads "field", "field.asc" or "field.desc". Only the first
// field of a list is used.
func parseOrder(s string) (string, bool) {
	first, _, _ := strings.Cut(s, ",")
	field, dir, _ := strings.Cut(first, ".")
	return field, !strings.HasPrefix(dir, "desc")
}

func wantsSingle(c *gin.Context) bool {
	return strings.Contains(c.GetHeader("Accept"), SingleObjectMediaType)
}

func bindRows(c *gin.Context) ([]models.Record, error) {
	var raw any
	if err := c.ShouldBindJSON(&raw); err != nil {
		return nil, err
	}
	switch v := raw.(type) {
	case map[string]any:
		return []models.Record{v}, nil
	case []any:
		rows := make([]models.Record, 0, len(v))
		for _, item := range v {
			obj, ok := item.(map[string]any)
			if !ok {
				return nil, errors.New("array elements must be objects")
			}
			rows = append(rows, obj)
		}
		return rows, nil
	default:
		return nil, errors.New("body must be an object or an array of objects")
	}
}

func contentRange(n, total int) string {
	if n == 0 {
		return fmt.Sprintf("*/%d", total)
	}
	return fmt.Sprintf("0-%d/%d", n-1, total)
}
