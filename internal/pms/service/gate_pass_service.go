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
	"github.com/pratyush-pilli/cimventory-sub000/internal/shared/notify"
	"github.com/pratyush-pilli/cimventory-sub000/internal/shared/render"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

const documentTypeGatePass = "returnable_gate_pass"

// GatePassService returnable gate passes
type GatePassService struct {
	db        *gorm.DB
	repos     *repository.Repositories
	inventory *InventoryService
	blobs     blob.Store
	renderer  render.Renderer
	pub       notify.Publisher
	logger    *zap.Logger
}

func NewGatePassService(db *gorm.DB, repos *repository.Repositories, inventory *InventoryService, blobs blob.Store, renderer render.Renderer, pub notify.Publisher, logger *zap.Logger) *GatePassService {
	return &GatePassService{db: db, repos: repos, inventory: inventory, blobs: blobs, renderer: renderer, pub: pub, logger: logger}
}

type GatePassItemInput struct {
	InventoryID string `json:"inventory_id" binding:"required"`
	Quantity    int    `json:"quantity"`
}

type IssueGatePassInput struct {
	PassType           string              `json:"pass_type" binding:"required"`
	IssuedTo           string              `json:"issued_to" binding:"required"`
	ProjectCode        string              `json:"project_code"`
	FromLocation       string              `json:"from_location" binding:"required"`
	ToLocation         string              `json:"to_location"`
	IssueDate          time.Time           `json:"issue_date"`
	ExpectedReturnDate time.Time           `json:"expected_return_date"`
	Purpose            string              `json:"purpose"`
	Items              []GatePassItemInput `json:"items" binding:"required"`
}

func (in *IssueGatePassInput) validate() error {
	in.IssuedTo = strings.TrimSpace(in.IssuedTo)
	if in.IssuedTo == "" {
		return apperr.Validation("issued_to is required", "issued_to")
	}
	if !entity.ValidLocation(in.FromLocation) {
		return apperr.Validation("unknown location "+in.FromLocation, "from_location")
	}
	switch in.PassType {
	case entity.GatePassTypeOutward:
		in.ToLocation = ""
	case entity.GatePassTypeInternalTransfer:
		if !entity.ValidLocation(in.ToLocation) {
			return apperr.Validation("internal transfer needs a known to_location", "to_location")
		}
		if in.ToLocation == in.FromLocation {
			return apperr.Validation("to_location must differ from from_location", "to_location")
		}
	default:
		return apperr.Validation("pass_type must be outward or internal_transfer", "pass_type")
	}
	if in.IssueDate.IsZero() {
		in.IssueDate = today(time.Now())
	}
	if in.ExpectedReturnDate.IsZero() {
		return apperr.Validation("expected_return_date is required", "expected_return_date")
	}
	if in.ExpectedReturnDate.Before(today(in.IssueDate)) {
		return apperr.Validation("expected_return_date is before issue_date", "expected_return_date")
	}
	if len(in.Items) == 0 {
		return apperr.Validation("no gate pass items", "items")
	}
	seen := make(map[string]bool, len(in.Items))
	for _, it := range in.Items {
		if it.Quantity <= 0 {
			return apperr.Validation("quantity must be positive", "quantity")
		}
		if seen[it.InventoryID] {
			return apperr.Validation("inventory listed twice: "+it.InventoryID, "inventory_id")
		}
		seen[it.InventoryID] = true
	}
	return nil
}

func gatePassPrefix(passType string) string {
	if passType == entity.GatePassTypeInternalTransfer {
		return codegen.PrefixInternalTransfer
	}
	return codegen.PrefixReturnableGatePass
}

// IssueGatePass numbers the pass, takes the stock out of from_location and
// stores the rendered pass. Outward passes leave the premises; internal
// transfers move the stock to to_location. Only unallocated stock can go.
func (s *GatePassService) IssueGatePass(ctx context.Context, issuer string, in *IssueGatePassInput) (*entity.ReturnableGatePass, error) {
	if err := in.validate(); err != nil {
		return nil, err
	}

	var pass *entity.ReturnableGatePass
	var written string
	err := transact(ctx, s.db, func(r *repository.Repositories) error {
		prefix := gatePassPrefix(in.PassType)
		series := codegen.SeriesPrefix(prefix, in.IssueDate)
		if err := repository.LockSeries(ctx, r.DB(), series); err != nil {
			return err
		}
		last, err := r.Delivery.LastGatePassNumber(ctx, series)
		if err != nil {
			return err
		}
		number, err := codegen.NextDocumentNumber(prefix, in.IssueDate, last)
		if err != nil {
			return apperr.Conflict(err.Error(), series)
		}

		pass = &entity.ReturnableGatePass{
			GatePassNumber:     number,
			PassType:           in.PassType,
			IssuedTo:           in.IssuedTo,
			ProjectCode:        in.ProjectCode,
			FromLocation:       in.FromLocation,
			ToLocation:         in.ToLocation,
			IssueDate:          in.IssueDate,
			ExpectedReturnDate: in.ExpectedReturnDate,
			Status:             entity.GatePassStatusIssued,
			Purpose:            in.Purpose,
			IssuedBy:           issuer,
		}

		if in.PassType == entity.GatePassTypeOutward {
			outward := &OutwardInput{
				DocumentType:   documentTypeGatePass,
				DocumentNumber: number,
				Remarks:        in.Purpose,
			}
			for _, it := range in.Items {
				outward.Items = append(outward.Items, OutwardItem{
					InventoryID:        it.InventoryID,
					ProjectCode:        in.ProjectCode,
					LocationQuantities: map[string]int{in.FromLocation: it.Quantity},
					OutwardType:        entity.OutwardTypeAvailable,
				})
			}
			if _, err := s.inventory.outward(ctx, r, issuer, outward); err != nil {
				return err
			}
		} else if err := s.transfer(ctx, r, in.Items, in.FromLocation, in.ToLocation); err != nil {
			return err
		}

		for _, it := range in.Items {
			inv, err := r.Inventory.FindByID(ctx, it.InventoryID)
			if err != nil {
				return orNotFound(err, "inventory", it.InventoryID)
			}
			pass.Items = append(pass.Items, entity.ReturnableGatePassItem{
				InventoryID: inv.ID,
				ItemNo:      inv.ItemNo,
				Description: inv.Description,
				Quantity:    it.Quantity,
			})
		}

		data, err := s.renderer.Render(gatePassDocument(pass))
		if err != nil {
			return apperr.Internal(fmt.Errorf("render gate pass %s: %w", number, err))
		}
		path := blob.GatePassPath(number, "xlsx")
		if err := s.blobs.Put(ctx, path, bytes.NewReader(data), int64(len(data)), blob.XLSXContentType); err != nil {
			return apperr.Internal(err)
		}
		written = path
		pass.DocumentPath = path
		return r.Delivery.CreateGatePass(ctx, pass)
	})
	if err != nil {
		removeQuietly(ctx, s.blobs, s.logger, written)
		return nil, err
	}
	s.inventory.cache.Invalidate(ctx, cache.InventoryListKey)
	s.logger.Info("gate pass issued",
		zap.String("number", pass.GatePassNumber), zap.String("type", pass.PassType), zap.Int("items", len(pass.Items)))
	return pass, nil
}

// transfer moves unallocated stock between two locations.
func (s *GatePassService) transfer(ctx context.Context, r *repository.Repositories, items []GatePassItemInput, from, to string) error {
	ids := make([]string, 0, len(items))
	for _, it := range items {
		ids = append(ids, it.InventoryID)
	}
	invs, order, err := s.inventory.lockInventories(ctx, r, ids)
	if err != nil {
		return err
	}
	for _, it := range items {
		inv := invs[it.InventoryID]
		free, err := freeAt(ctx, r, inv, from)
		if err != nil {
			return err
		}
		if it.Quantity > free {
			return apperr.InsufficientStock(from, it.Quantity-max(free, 0),
				fmt.Sprintf("%s has %d unallocated at %s", inv.ItemNo, max(free, 0), from))
		}
		if err := inv.AddStock(from, -it.Quantity); err != nil {
			return apperr.InsufficientStock(from, it.Quantity, err.Error())
		}
		if err := inv.AddStock(to, it.Quantity); err != nil {
			return apperr.Validation(err.Error(), "to_location")
		}
	}
	for _, id := range order {
		if err := settle(ctx, r, invs[id]); err != nil {
			return err
		}
	}
	return nil
}

type GatePassReturnItemInput struct {
	ItemID   string `json:"item_id" binding:"required"`
	Quantity int    `json:"quantity"`
}

type GatePassReturnInput struct {
	GatePassID string                    `json:"gate_pass_id" binding:"required"`
	ReturnDate time.Time                 `json:"return_date"`
	Remarks    string                    `json:"remarks"`
	Items      []GatePassReturnItemInput `json:"items" binding:"required"`
}

// RecordGatePassReturn books returned quantities. Outward passes add the
// stock back at from_location; internal transfers move it back there from
// to_location.
func (s *GatePassService) RecordGatePassReturn(ctx context.Context, receiver string, in *GatePassReturnInput) (*entity.ReturnableGatePass, error) {
	if len(in.Items) == 0 {
		return nil, apperr.Validation("no returned items", "items")
	}
	qty := make(map[string]int, len(in.Items))
	for _, it := range in.Items {
		if it.Quantity <= 0 {
			return nil, apperr.Validation("quantity must be positive", "quantity")
		}
		qty[it.ItemID] += it.Quantity
	}
	if in.ReturnDate.IsZero() {
		in.ReturnDate = today(time.Now())
	}

	var pass *entity.ReturnableGatePass
	err := transact(ctx, s.db, func(r *repository.Repositories) error {
		var err error
		pass, err = r.Delivery.LockGatePass(ctx, in.GatePassID)
		if err != nil {
			return orNotFound(err, "gate_pass", in.GatePassID)
		}
		if pass.Status == entity.GatePassStatusFullyReturned {
			return apperr.InvalidTransition("gate_pass", pass.Status, "returned")
		}

		items := make(map[string]*entity.ReturnableGatePassItem, len(pass.Items))
		for i := range pass.Items {
			items[pass.Items[i].ID] = &pass.Items[i]
		}
		var ids []string
		for id, q := range qty {
			it, ok := items[id]
			if !ok {
				return apperr.NotFound("gate_pass_item", pass.GatePassNumber+"/"+id)
			}
			if q > it.Outstanding() {
				return apperr.InvariantViolation(fmt.Sprintf(
					"%s: returning %d of %s but only %d outstanding", pass.GatePassNumber, q, it.ItemNo, it.Outstanding()))
			}
			ids = append(ids, it.InventoryID)
		}

		invs, order, err := s.inventory.lockInventories(ctx, r, ids)
		if err != nil {
			return err
		}
		ret := &entity.ReturnableGatePassReturn{
			GatePassID: pass.ID,
			ReturnDate: in.ReturnDate,
			ReceivedBy: receiver,
			Remarks:    in.Remarks,
		}
		for _, id := range sortedKeys(keysOf(qty)) {
			it, q := items[id], qty[id]
			inv := invs[it.InventoryID]
			if pass.PassType == entity.GatePassTypeInternalTransfer {
				if stock := inv.StockAt(pass.ToLocation); stock < q {
					return apperr.InsufficientStock(pass.ToLocation, q-stock,
						fmt.Sprintf("%s has %d at %s", inv.ItemNo, stock, pass.ToLocation))
				}
				if err := inv.AddStock(pass.ToLocation, -q); err != nil {
					return apperr.InsufficientStock(pass.ToLocation, q, err.Error())
				}
			}
			if err := inv.AddStock(pass.FromLocation, q); err != nil {
				return apperr.Validation(err.Error(), "from_location")
			}
			it.ReturnedQuantity += q
			if err := r.Delivery.SetReturned(ctx, it.ID, it.ReturnedQuantity); err != nil {
				return err
			}
			ret.Items = append(ret.Items, entity.ReturnableGatePassReturnItem{
				GatePassItemID: it.ID,
				Quantity:       q,
				Location:       pass.FromLocation,
			})
		}
		for _, id := range order {
			if err := settle(ctx, r, invs[id]); err != nil {
				return err
			}
		}
		if err := r.Delivery.CreateGatePassReturn(ctx, ret); err != nil {
			return err
		}
		pass.Status = pass.StatusAfterReturn(in.ReturnDate)
		return r.Delivery.SetGatePassStatus(ctx, pass.ID, pass.Status)
	})
	if err != nil {
		return nil, err
	}
	s.inventory.cache.Invalidate(ctx, cache.InventoryListKey)
	s.logger.Info("gate pass return recorded",
		zap.String("number", pass.GatePassNumber), zap.String("status", pass.Status))
	return pass, nil
}

func keysOf(m map[string]int) map[string]bool {
	out := make(map[string]bool, len(m))
	for k := range m {
		out[k] = true
	}
	return out
}

// MarkOverdueGatePasses flips open passes past their expected return date
// and tells the issuers.
func (s *GatePassService) MarkOverdueGatePasses(ctx context.Context, now time.Time) (int, error) {
	var marked []entity.ReturnableGatePass
	err := transact(ctx, s.db, func(r *repository.Repositories) error {
		var err error
		marked, err = r.Delivery.MarkOverdue(ctx, today(now))
		return err
	})
	if err != nil {
		return 0, err
	}
	events := make([]notify.Event, 0, len(marked))
	for _, g := range marked {
		events = append(events, notify.New(notify.GatePassOverdue,
			"Gate pass "+g.GatePassNumber+" is overdue",
			[]string{g.IssuedBy},
			map[string]interface{}{
				"gate_pass_number":     g.GatePassNumber,
				"issued_to":            g.IssuedTo,
				"expected_return_date": g.ExpectedReturnDate.Format("2006-01-02"),
			}))
	}
	publish(s.pub, events...)
	if len(marked) > 0 {
		s.logger.Info("gate passes overdue", zap.Int("count", len(marked)))
	}
	return len(marked), nil
}

func (s *GatePassService) Get(ctx context.Context, id string) (*entity.ReturnableGatePass, error) {
	g, err := s.repos.Delivery.FindGatePass(ctx, id)
	if err != nil {
		return nil, orNotFound(err, "gate_pass", id)
	}
	return g, nil
}

func (s *GatePassService) List(ctx context.Context, page, pageSize int, status string) ([]entity.ReturnableGatePass, int64, error) {
	return s.repos.Delivery.ListGatePasses(ctx, page, pageSize, status)
}

func gatePassDocument(g *entity.ReturnableGatePass) render.Document {
	title := "Returnable Gate Pass"
	if g.PassType == entity.GatePassTypeInternalTransfer {
		title = "Internal Transfer Pass"
	}
	doc := render.Document{
		Title:  title,
		Sheet:  "Gate Pass",
		Number: g.GatePassNumber,
		Date:   g.IssueDate,
		Header: []render.Field{
			{Label: "Issued To", Value: g.IssuedTo},
			{Label: "Project", Value: g.ProjectCode},
			{Label: "From", Value: g.FromLocation},
			{Label: "To", Value: g.ToLocation},
			{Label: "Expected Return", Value: g.ExpectedReturnDate.Format("02-01-2006")},
		},
		Columns: []string{"#", "Item No", "Description", "Qty"},
		Widths:  []float64{5, 20, 50, 8},
		Footer: []render.Field{
			{Label: "Purpose", Value: g.Purpose},
			{Label: "Issued By", Value: g.IssuedBy},
		},
	}
	for i, it := range g.Items {
		doc.Rows = append(doc.Rows, []interface{}{i + 1, it.ItemNo, it.Description, it.Quantity})
	}
	return doc
}
