package service

import (
	"bytes"
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/pratyush-pilli/cimventory-sub000/internal/pms/codegen"
	"github.com/pratyush-pilli/cimventory-sub000/internal/pms/entity"
	"github.com/pratyush-pilli/cimventory-sub000/internal/pms/repository"
	"github.com/pratyush-pilli/cimventory-sub000/internal/shared/apperr"
	"github.com/pratyush-pilli/cimventory-sub000/internal/shared/blob"
	"github.com/pratyush-pilli/cimventory-sub000/internal/shared/cache"
	"github.com/pratyush-pilli/cimventory-sub000/internal/shared/render"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

const documentTypeDeliveryChallan = "delivery_challan"

// DeliveryService delivery challans and rejected material returns
type DeliveryService struct {
	db        *gorm.DB
	repos     *repository.Repositories
	inventory *InventoryService
	blobs     blob.Store
	renderer  render.Renderer
	logger    *zap.Logger
}

func NewDeliveryService(db *gorm.DB, repos *repository.Repositories, inventory *InventoryService, blobs blob.Store, renderer render.Renderer, logger *zap.Logger) *DeliveryService {
	return &DeliveryService{db: db, repos: repos, inventory: inventory, blobs: blobs, renderer: renderer, logger: logger}
}

type ChallanItemInput struct {
	InventoryID    string `json:"inventory_id" binding:"required"`
	StockOutwardID string `json:"stock_outward_id"`
	Location       string `json:"location"`
	Quantity       int    `json:"quantity"`
	UOM            string `json:"uom"`
}

// ChallanInput header of a delivery challan. Items are only read by
// GenerateChallan; the composite flow derives them from the outward.
type ChallanInput struct {
	DocumentNumber   string             `json:"document_number"`
	ChallanDate      time.Time          `json:"challan_date"`
	ProjectCode      string             `json:"project_code"`
	ConsigneeName    string             `json:"consignee_name"`
	ConsigneeAddress string             `json:"consignee_address"`
	ConsigneeGSTIN   string             `json:"consignee_gstin"`
	VehicleNo        string             `json:"vehicle_no"`
	TransporterName  string             `json:"transporter_name"`
	Remarks          string             `json:"remarks"`
	Items            []ChallanItemInput `json:"items"`
}

func (in *ChallanInput) validateHeader() error {
	in.ConsigneeName = strings.TrimSpace(in.ConsigneeName)
	if in.ConsigneeName == "" {
		return apperr.Validation("consignee_name is required", "consignee_name")
	}
	if in.ChallanDate.IsZero() {
		in.ChallanDate = today(time.Now())
	}
	return nil
}

type ChallanResult struct {
	ChallanID      string                `json:"challan_id"`
	DocumentNumber string                `json:"document_number"`
	DocumentPath   string                `json:"document_path"`
	Outwards       []entity.StockOutward `json:"outwards,omitempty"`
}

// GenerateChallan renders a challan for stock that has already gone out.
func (s *DeliveryService) GenerateChallan(ctx context.Context, operator string, in *ChallanInput) (*ChallanResult, error) {
	if err := in.validateHeader(); err != nil {
		return nil, err
	}
	if len(in.Items) == 0 {
		return nil, apperr.Validation("no challan items", "items")
	}
	for _, it := range in.Items {
		if it.Quantity <= 0 {
			return nil, apperr.Validation("quantity must be positive", "quantity")
		}
	}

	var out *ChallanResult
	var written string
	err := transact(ctx, s.db, func(r *repository.Repositories) error {
		d := challanHeader(in, operator)
		for _, it := range in.Items {
			inv, err := r.Inventory.FindByID(ctx, it.InventoryID)
			if err != nil {
				return orNotFound(err, "inventory", it.InventoryID)
			}
			d.Items = append(d.Items, entity.DeliveryChallanItem{
				InventoryID:    inv.ID,
				StockOutwardID: it.StockOutwardID,
				ItemNo:         inv.ItemNo,
				Description:    inv.Description,
				Make:           inv.Make,
				UOM:            it.UOM,
				Location:       it.Location,
				Quantity:       it.Quantity,
			})
		}
		var err error
		written, err = s.persistChallan(ctx, r, d)
		if err != nil {
			return err
		}
		out = &ChallanResult{ChallanID: d.ID, DocumentNumber: d.DocumentNumber, DocumentPath: d.DocumentPath}
		return nil
	})
	if err != nil {
		removeQuietly(ctx, s.blobs, s.logger, written)
		return nil, err
	}
	s.logger.Info("delivery challan generated", zap.String("number", out.DocumentNumber))
	return out, nil
}

// ProcessOutwardAndDocument issues the outward, renders the challan and
// stores it in one transaction. Any failure leaves stock untouched and the
// uploaded document removed.
func (s *DeliveryService) ProcessOutwardAndDocument(ctx context.Context, operator string, outward *OutwardInput, doc *ChallanInput) (*ChallanResult, error) {
	if err := outward.validate(); err != nil {
		return nil, err
	}
	if err := doc.validateHeader(); err != nil {
		return nil, err
	}

	var out *ChallanResult
	var written string
	err := transact(ctx, s.db, func(r *repository.Repositories) error {
		d := challanHeader(doc, operator)
		if d.DocumentNumber == "" {
			n, err := s.nextChallanNumber(ctx, r, d.ChallanDate)
			if err != nil {
				return err
			}
			d.DocumentNumber = n
		}
		outward.DocumentType = documentTypeDeliveryChallan
		outward.DocumentNumber = d.DocumentNumber
		if outward.Remarks == "" {
			outward.Remarks = doc.Remarks
		}
		outwards, err := s.inventory.outward(ctx, r, operator, outward)
		if err != nil {
			return err
		}

		uom := make(map[string]string)
		for _, it := range doc.Items {
			uom[it.InventoryID] = it.UOM
		}
		for _, o := range outwards {
			inv, err := r.Inventory.FindByID(ctx, o.InventoryID)
			if err != nil {
				return orNotFound(err, "inventory", o.InventoryID)
			}
			d.Items = append(d.Items, entity.DeliveryChallanItem{
				InventoryID:    inv.ID,
				StockOutwardID: o.ID,
				ItemNo:         inv.ItemNo,
				Description:    inv.Description,
				Make:           inv.Make,
				UOM:            uom[inv.ID],
				Location:       o.Location,
				Quantity:       o.Quantity,
			})
		}

		written, err = s.persistChallan(ctx, r, d)
		if err != nil {
			return err
		}
		out = &ChallanResult{
			ChallanID:      d.ID,
			DocumentNumber: d.DocumentNumber,
			DocumentPath:   d.DocumentPath,
			Outwards:       outwards,
		}
		return nil
	})
	if err != nil {
		removeQuietly(ctx, s.blobs, s.logger, written)
		return nil, err
	}
	s.inventory.cache.Invalidate(ctx, cache.InventoryListKey)
	s.logger.Info("outward with delivery challan",
		zap.String("number", out.DocumentNumber), zap.Int("outwards", len(out.Outwards)))
	return out, nil
}

func (s *DeliveryService) nextChallanNumber(ctx context.Context, r *repository.Repositories, at time.Time) (string, error) {
	series := codegen.SeriesPrefix(codegen.PrefixDeliveryChallan, at)
	if err := repository.LockSeries(ctx, r.DB(), series); err != nil {
		return "", err
	}
	last, err := r.Delivery.LastChallanNumber(ctx, series)
	if err != nil {
		return "", err
	}
	n, err := codegen.NextDocumentNumber(codegen.PrefixDeliveryChallan, at, last)
	if err != nil {
		return "", apperr.Conflict(err.Error(), series)
	}
	return n, nil
}

// persistChallan numbers, renders, uploads and inserts d. The returned path
// is set as soon as the blob exists so the caller can remove it on rollback.
func (s *DeliveryService) persistChallan(ctx context.Context, r *repository.Repositories, d *entity.DeliveryChallan) (string, error) {
	if d.DocumentNumber == "" {
		n, err := s.nextChallanNumber(ctx, r, d.ChallanDate)
		if err != nil {
			return "", err
		}
		d.DocumentNumber = n
	}
	data, err := s.renderer.Render(challanDocument(d))
	if err != nil {
		return "", apperr.Internal(fmt.Errorf("render challan %s: %w", d.DocumentNumber, err))
	}
	path := blob.DeliveryChallanPath(d.DocumentNumber, time.Now())
	if err := s.blobs.Put(ctx, path, bytes.NewReader(data), int64(len(data)), blob.XLSXContentType); err != nil {
		return "", apperr.Internal(err)
	}
	d.DocumentPath = path
	if err := r.Delivery.CreateChallan(ctx, d); err != nil {
		return path, err
	}
	return path, nil
}

func challanHeader(in *ChallanInput, operator string) *entity.DeliveryChallan {
	return &entity.DeliveryChallan{
		DocumentNumber:   strings.TrimSpace(in.DocumentNumber),
		ChallanDate:      in.ChallanDate,
		ProjectCode:      in.ProjectCode,
		ConsigneeName:    in.ConsigneeName,
		ConsigneeAddress: in.ConsigneeAddress,
		ConsigneeGSTIN:   in.ConsigneeGSTIN,
		VehicleNo:        in.VehicleNo,
		TransporterName:  in.TransporterName,
		Remarks:          in.Remarks,
		CreatedBy:        operator,
	}
}

func challanDocument(d *entity.DeliveryChallan) render.Document {
	doc := render.Document{
		Title:  "Delivery Challan",
		Sheet:  "Challan",
		Number: d.DocumentNumber,
		Date:   d.ChallanDate,
		Header: []render.Field{
			{Label: "Consignee", Value: d.ConsigneeName},
			{Label: "Address", Value: d.ConsigneeAddress},
			{Label: "GSTIN", Value: d.ConsigneeGSTIN},
			{Label: "Project", Value: d.ProjectCode},
			{Label: "Vehicle No", Value: d.VehicleNo},
			{Label: "Transporter", Value: d.TransporterName},
		},
		Columns: []string{"#", "Item No", "Description", "Make", "Location", "UOM", "Qty"},
		Widths:  []float64{5, 20, 40, 18, 12, 8, 8},
		Footer: []render.Field{
			{Label: "Total Quantity", Value: d.TotalQuantity()},
			{Label: "Remarks", Value: d.Remarks},
		},
	}
	for i, it := range d.Items {
		doc.Rows = append(doc.Rows, []interface{}{
			i + 1, it.ItemNo, it.Description, it.Make, it.Location, it.UOM, it.Quantity,
		})
	}
	return doc
}

func (s *DeliveryService) GetChallan(ctx context.Context, id string) (*entity.DeliveryChallan, error) {
	d, err := s.repos.Delivery.FindChallan(ctx, id)
	if err != nil {
		return nil, orNotFound(err, "delivery_challan", id)
	}
	return d, nil
}

func (s *DeliveryService) ListChallans(ctx context.Context, page, pageSize int, projectCode string) ([]entity.DeliveryChallan, int64, error) {
	return s.repos.Delivery.ListChallans(ctx, page, pageSize, projectCode)
}

// === Rejected material ===

type RejectedItemInput struct {
	InventoryID string `json:"inventory_id" binding:"required"`
	Quantity    int    `json:"quantity"`
	Action      string `json:"action"`
	Location    string `json:"location"`
}

type RejectedReturnInput struct {
	DeliveryChallanID string              `json:"delivery_challan_id" binding:"required"`
	ClientName        string              `json:"client_name" binding:"required"`
	ReturnDate        time.Time           `json:"return_date"`
	Reason            string              `json:"reason"`
	Items             []RejectedItemInput `json:"items" binding:"required"`
}

func (in *RejectedReturnInput) validate() error {
	in.ClientName = strings.TrimSpace(in.ClientName)
	if in.ClientName == "" {
		return apperr.Validation("client_name is required", "client_name")
	}
	if len(in.Items) == 0 {
		return apperr.Validation("no returned items", "items")
	}
	for _, it := range in.Items {
		if it.Quantity <= 0 {
			return apperr.Validation("quantity must be positive", "quantity")
		}
		switch it.Action {
		case entity.RejectedActionAddBack:
			if !entity.ValidLocation(it.Location) {
				return apperr.Validation("add_back needs a known location", "location")
			}
		case entity.RejectedActionDiscard:
		default:
			return apperr.Validation("action must be add_back or discard", "action")
		}
	}
	if in.ReturnDate.IsZero() {
		in.ReturnDate = today(time.Now())
	}
	return nil
}

// RecordRejectedMaterialReturn books a client return against a challan.
// Returned quantities per item may never exceed what the challan delivered.
func (s *DeliveryService) RecordRejectedMaterialReturn(ctx context.Context, operator string, in *RejectedReturnInput) (*entity.RejectedMaterialReturn, error) {
	if err := in.validate(); err != nil {
		return nil, err
	}

	var ret *entity.RejectedMaterialReturn
	addedBack := false
	err := transact(ctx, s.db, func(r *repository.Repositories) error {
		challan, err := r.Delivery.LockChallan(ctx, in.DeliveryChallanID)
		if err != nil {
			return orNotFound(err, "delivery_challan", in.DeliveryChallanID)
		}
		delivered := make(map[string]int)
		itemNos := make(map[string]string)
		for _, it := range challan.Items {
			delivered[it.InventoryID] += it.Quantity
			if it.ItemNo != "" {
				itemNos[it.InventoryID] = it.ItemNo
			}
		}
		previous, err := r.Delivery.ListRejectedReturns(ctx, challan.ID)
		if err != nil {
			return err
		}
		returned := make(map[string]int)
		for _, p := range previous {
			for _, it := range p.Items {
				returned[it.InventoryID] += it.Quantity
			}
		}

		ret = &entity.RejectedMaterialReturn{
			DeliveryChallanID: challan.ID,
			ChallanNumber:     challan.DocumentNumber,
			ClientName:        in.ClientName,
			ReturnDate:        in.ReturnDate,
			Reason:            in.Reason,
			CreatedBy:         operator,
		}
		var addBack []string
		for _, it := range in.Items {
			if _, ok := delivered[it.InventoryID]; !ok {
				return apperr.NotFound("delivery_challan_item", challan.DocumentNumber+"/"+it.InventoryID)
			}
			returned[it.InventoryID] += it.Quantity
			if returned[it.InventoryID] > delivered[it.InventoryID] {
				return apperr.InvariantViolation(fmt.Sprintf(
					"returns for %s on %s would reach %d, only %d delivered",
					it.InventoryID, challan.DocumentNumber, returned[it.InventoryID], delivered[it.InventoryID]))
			}
			if it.Action == entity.RejectedActionAddBack {
				addBack = append(addBack, it.InventoryID)
			}
		}

		invs, order, err := s.inventory.lockInventories(ctx, r, addBack)
		if err != nil {
			return err
		}
		for _, it := range in.Items {
			row := entity.RejectedMaterialReturnItem{
				InventoryID: it.InventoryID,
				Quantity:    it.Quantity,
				Action:      it.Action,
			}
			if inv, ok := invs[it.InventoryID]; ok {
				row.ItemNo = inv.ItemNo
			} else if no, ok := itemNos[it.InventoryID]; ok {
				row.ItemNo = no
			} else {
				// discarded stock is not touched, so no lock
				inv, err := r.Inventory.FindByID(ctx, it.InventoryID)
				if err != nil {
					return orNotFound(err, "inventory", it.InventoryID)
				}
				row.ItemNo = inv.ItemNo
			}
			if it.Action == entity.RejectedActionAddBack {
				row.Location = it.Location
				if err := invs[it.InventoryID].AddStock(it.Location, it.Quantity); err != nil {
					return apperr.Validation(err.Error(), "location")
				}
			}
			ret.Items = append(ret.Items, row)
		}
		for _, id := range order {
			if err := settle(ctx, r, invs[id]); err != nil {
				return err
			}
		}
		addedBack = len(order) > 0

		ret.ActionTaken = ret.SummarizeActions()
		return r.Delivery.CreateRejectedReturn(ctx, ret)
	})
	if err != nil {
		return nil, err
	}
	if addedBack {
		s.inventory.cache.Invalidate(ctx, cache.InventoryListKey)
	}
	s.logger.Info("rejected material recorded",
		zap.String("challan", ret.ChallanNumber), zap.String("action_taken", ret.ActionTaken))
	return ret, nil
}

func (s *DeliveryService) ListRejectedReturns(ctx context.Context, challanID string) ([]entity.RejectedMaterialReturn, error) {
	return s.repos.Delivery.ListRejectedReturns(ctx, challanID)
}
