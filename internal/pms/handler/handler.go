package handler

import (
	"errors"
	"net/http"
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/pratyush-pilli/cimventory-sub000/internal/pms/service"
	"github.com/pratyush-pilli/cimventory-sub000/internal/shared/apperr"
	"go.uber.org/zap"
)

// Handlers every HTTP handler of the procurement API
type Handlers struct {
	Classification *ClassificationHandler
	Request        *RequestHandler
	Requisition    *RequisitionHandler
	PO             *POHandler
	Inventory      *InventoryHandler
	Delivery       *DeliveryHandler
	Project        *ProjectHandler
}

func NewHandlers(svc *service.Services, logger *zap.Logger) *Handlers {
	if logger == nil {
		logger = zap.NewNop()
	}
	b := base{logger: logger}
	return &Handlers{
		Classification: &ClassificationHandler{base: b, svc: svc.Classification},
		Request:        &RequestHandler{base: b, svc: svc.Request},
		Requisition:    &RequisitionHandler{base: b, svc: svc.Requisition, master: svc.Master},
		PO:             &POHandler{base: b, svc: svc.PO, inward: svc.Inward, vendor: svc.Vendor},
		Inventory:      &InventoryHandler{base: b, svc: svc.Inventory},
		Delivery:       &DeliveryHandler{base: b, svc: svc.Delivery, gatePass: svc.GatePass},
		Project:        &ProjectHandler{base: b, svc: svc.Project},
	}
}

// Response common envelope
type Response struct {
	Code    int         `json:"code"`
	Message string      `json:"message"`
	Data    interface{} `json:"data,omitempty"`
}

type ListResponse struct {
	Items      interface{} `json:"items"`
	Pagination *Pagination `json:"pagination"`
}

type Pagination struct {
	Page       int `json:"page"`
	PageSize   int `json:"page_size"`
	Total      int `json:"total"`
	TotalPages int `json:"total_pages"`
}

// errorBody carries the structured part of a domain rejection.
type errorBody struct {
	Kind      apperr.Kind `json:"kind"`
	Fields    []string    `json:"fields,omitempty"`
	Value     string      `json:"value,omitempty"`
	Location  string      `json:"location,omitempty"`
	Shortfall int         `json:"shortfall,omitempty"`
}

func Success(c *gin.Context, data interface{}) {
	c.JSON(http.StatusOK, Response{Code: 0, Message: "success", Data: data})
}

func Created(c *gin.Context, data interface{}) {
	c.JSON(http.StatusCreated, Response{Code: 0, Message: "success", Data: data})
}

func List(c *gin.Context, items interface{}, page, pageSize int, total int64) {
	pages := 0
	if pageSize > 0 {
		pages = int((total + int64(pageSize) - 1) / int64(pageSize))
	}
	Success(c, ListResponse{
		Items:      items,
		Pagination: &Pagination{Page: page, PageSize: pageSize, Total: int(total), TotalPages: pages},
	})
}

// Error writes the envelope; the HTTP status is code/100.
func Error(c *gin.Context, code int, message string) {
	errorWithData(c, code, message, nil)
}

func errorWithData(c *gin.Context, code int, message string, data interface{}) {
	status := code / 100
	if status < 100 || status > 599 {
		status = http.StatusInternalServerError
	}
	c.JSON(status, Response{Code: code, Message: message, Data: data})
}

func BadRequest(c *gin.Context, message string) {
	Error(c, 40000, message)
}

func NotFound(c *gin.Context, message string) {
	Error(c, 40400, message)
}

func InternalError(c *gin.Context, message string) {
	Error(c, 50000, message)
}

var kindCodes = map[apperr.Kind]int{
	apperr.KindValidation:         40000,
	apperr.KindNotFound:           40400,
	apperr.KindConflict:           40900,
	apperr.KindInvalidTransition:  40901,
	apperr.KindInsufficientStock:  42200,
	apperr.KindInvariantViolation: 42201,
	apperr.KindBusy:               42300,
}

type base struct {
	logger *zap.Logger
}

// fail maps a service error onto the envelope. Internal errors are logged
// and answered with a generic message.
func (b base) fail(c *gin.Context, err error) {
	var ae *apperr.Error
	if !errors.As(err, &ae) {
		ae = apperr.Internal(err)
	}
	code, ok := kindCodes[ae.Kind]
	if !ok {
		b.logger.Error("request failed",
			zap.String("path", c.FullPath()),
			zap.String("request_id", c.GetString("request_id")),
			zap.Error(err),
			zap.StackSkip("stack", 1))
		InternalError(c, "internal server error")
		return
	}
	if ae.Kind == apperr.KindBusy {
		b.logger.Warn("lock contention", zap.String("path", c.FullPath()), zap.Error(err))
	}
	errorWithData(c, code, ae.Message, errorBody{
		Kind:      ae.Kind,
		Fields:    ae.Fields,
		Value:     ae.Value,
		Location:  ae.Location,
		Shortfall: ae.Shortfall,
	})
}

func (b base) bind(c *gin.Context, v interface{}) bool {
	if err := c.ShouldBindJSON(v); err != nil {
		BadRequest(c, "Invalid request body: "+err.Error())
		return false
	}
	return true
}

// GetUserID from the JWT claims
func GetUserID(c *gin.Context) string {
	return c.GetString("user_id")
}

// operator identifies the caller in audit columns and notification
// recipients: the email when the token carries one.
func operator(c *gin.Context) string {
	if email := c.GetString("user_email"); email != "" {
		return email
	}
	return GetUserID(c)
}

func GetPagination(c *gin.Context) (page, pageSize int) {
	page = 1
	pageSize = 20

	if p := c.Query("page"); p != "" {
		if v, err := strconv.Atoi(p); err == nil && v > 0 {
			page = v
		}
	}

	if ps := c.Query("page_size"); ps != "" {
		if v, err := strconv.Atoi(ps); err == nil && v > 0 && v <= 100 {
			pageSize = v
		}
	}

	return page, pageSize
}

// upload reads an optional multipart file field.
func upload(c *gin.Context, field string) (*service.Upload, func(), error) {
	fh, err := c.FormFile(field)
	if errors.Is(err, http.ErrMissingFile) {
		return nil, func() {}, nil
	}
	if err != nil {
		return nil, nil, err
	}
	f, err := fh.Open()
	if err != nil {
		return nil, nil, err
	}
	return &service.Upload{
		FileName:    fh.Filename,
		ContentType: fh.Header.Get("Content-Type"),
		Size:        fh.Size,
		Content:     f,
	}, func() { f.Close() }, nil
}

func isMultipart(c *gin.Context) bool {
	return strings.HasPrefix(c.ContentType(), "multipart/")
}
