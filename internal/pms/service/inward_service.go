package service

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/pratyush-pilli/cimventory-sub000/internal/pms/entity"
	"github.com/pratyush-pilli/cimventory-sub000/internal/pms/repository"
	"github.com/pratyush-pilli/cimventory-sub000/internal/shared/apperr"
	"github.com/pratyush-pilli/cimventory-sub000/internal/shared/blob"
	"github.com/pratyush-pilli/cimventory-sub000/internal/shared/cache"
	"github.com/pratyush-pilli/cimventory-sub000/internal/shared/notify"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

// InwardService goods receipt against purchase orders
type InwardService struct {
	db     *gorm.DB
	repos  *repository.Repositories
	cache  *cache.Cache
	blobs  blob.Store
	pub    notify.Publisher
	dir    *Directory
	logger *zap.Logger
}

func NewInwardService(db *gorm.DB, repos *repository.Repositories, c *cache.Cache, blobs blob.Store, pub notify.Publisher, dir *Directory, logger *zap.Logger) *InwardService {
	return &InwardService{db: db, repos: repos, cache: c, blobs: blobs, pub: pub, dir: dir, logger: logger}
}

type InwardItemInput struct {
	ItemCode         string `json:"item_code"`
	QuantityReceived int    `json:"quantity_received"`
}

type RecordInwardInput struct {
	PONumber      string            `json:"po_number" binding:"required"`
	Location      string            `json:"location" binding:"required"`
	ReceivedDate  time.Time         `json:"received_date"`
	InvoiceNumber string            `json:"invoice_number"`
	InvoiceDate   time.Time         `json:"invoice_date"`
	Items         []InwardItemInput `json:"items" binding:"required"`
}

type InwardResult struct {
	PONumber              string               `json:"po_number"`
	InwardStatus          string               `json:"po_status"`
	TotalInwardedQuantity int                  `json:"total_inwarded_quantity"`
	InvoicePath           string               `json:"invoice_path,omitempty"`
	Entries               []entity.InwardEntry `json:"entries"`
}

func (in *RecordInwardInput) validate() (map[string]int, error) {
	if !entity.ValidLocation(in.Location) {
		return nil, apperr.Validation("unknown location "+in.Location, "location")
	}
	in.InvoiceNumber = strings.TrimSpace(in.InvoiceNumber)
	var missing []string
	if in.InvoiceNumber == "" {
		missing = append(missing, "invoice_number")
	}
	if in.InvoiceDate.IsZero() {
		missing = append(missing, "invoice_date")
	}
	if len(missing) > 0 {
		return nil, apperr.Validation("invoice details are required", missing...)
	}
	if len(in.Items) == 0 {
		return nil, apperr.Validation("no items received", "items")
	}
	received := make(map[string]int, len(in.Items))
	for _, it := range in.Items {
		code := strings.ToUpper(strings.TrimSpace(it.ItemCode))
		if code == "" {
			return nil, apperr.Validation("item_code is required", "item_code")
		}
		if it.QuantityReceived <= 0 {
			return nil, apperr.Validation("quantity_received must be positive for "+code, "quantity_received")
		}
		received[code] += it.QuantityReceived
	}
	return received, nil
}

// RecordInward books received quantities against the PO lines and adds them
// to the location's stock. The invoice file is stored first and removed
// again if the receipt fails.
func (s *InwardService) RecordInward(ctx context.Context, receiver string, in *RecordInwardInput, invoice *Upload) (*InwardResult, error) {
	received, err := in.validate()
	if err != nil {
		return nil, err
	}
	po, err := s.repos.PO.FindByNumber(ctx, in.PONumber)
	if err != nil {
		return nil, orNotFound(err, "purchase_order", in.PONumber)
	}
	if po.InwardStatus == entity.InwardStatusCompleted {
		return nil, apperr.InvalidTransition("purchase_order", po.InwardStatus, "inward")
	}
	receivedDate := in.ReceivedDate
	if receivedDate.IsZero() {
		receivedDate = today(time.Now())
	}

	var invoicePath string
	if invoice.present() {
		invoicePath = blob.InvoicePath(po.PONumber, blob.Ext(invoice.FileName, "pdf"), time.Now())
		if err := s.blobs.Put(ctx, invoicePath, invoice.Content, invoice.Size, invoice.ContentType); err != nil {
			return nil, apperr.Internal(err)
		}
	}

	out := &InwardResult{PONumber: po.PONumber, InvoicePath: invoicePath}
	var pending notify.Pending
	err = transact(ctx, s.db, func(r *repository.Repositories) error {
		po, err := r.PO.LockByNumber(ctx, in.PONumber)
		if err != nil {
			return orNotFound(err, "purchase_order", in.PONumber)
		}
		if po.InwardStatus == entity.InwardStatusCompleted {
			return apperr.InvalidTransition("purchase_order", po.InwardStatus, "inward")
		}

		linesByItem := make(map[string][]*entity.POLineItem)
		for i := range po.LineItems {
			l := &po.LineItems[i]
			linesByItem[l.ItemNo] = append(linesByItem[l.ItemNo], l)
		}

		codes := make([]string, 0, len(received))
		for code := range received {
			codes = append(codes, code)
		}
		sort.Strings(codes)

		var entries []entity.InwardEntry
		var completedMasters []string
		for _, code := range codes {
			qty := received[code]
			lines := linesByItem[code]
			if len(lines) == 0 {
				return apperr.NotFound("po_line", po.PONumber+"/"+code)
			}
			open := 0
			for _, l := range lines {
				open += l.Remaining()
			}
			if qty > open {
				return apperr.InvariantViolation(fmt.Sprintf(
					"%s: receiving %d exceeds the %d still open on %s", code, qty, open, po.PONumber))
			}

			first := lines[0]
			inv, err := r.Inventory.EnsureByItemNo(ctx, &entity.Inventory{
				ItemNo:        code,
				Description:   first.Description,
				Make:          first.Make,
				MaterialGroup: first.MaterialGroup,
			})
			if err != nil {
				return err
			}
			if err := inv.AddStock(in.Location, qty); err != nil {
				return apperr.Validation(err.Error(), "location")
			}
			if err := settle(ctx, r, inv); err != nil {
				return err
			}

			remaining := qty
			for _, l := range lines {
				if remaining == 0 {
					break
				}
				take := min(l.Remaining(), remaining)
				if take == 0 {
					continue
				}
				l.InwardedQuantity += take
				remaining -= take
				if err := r.PO.SetInwarded(ctx, l.ID, l.InwardedQuantity); err != nil {
					return err
				}
				if l.Remaining() == 0 && l.MasterID != "" {
					completedMasters = append(completedMasters, l.MasterID)
				}
				entries = append(entries, entity.InwardEntry{
					PONumber:            po.PONumber,
					POLineItemID:        l.ID,
					InventoryID:         inv.ID,
					ItemCode:            code,
					OrderedQuantity:     l.Quantity,
					QuantityReceived:    take,
					ReceivedDate:        receivedDate,
					Location:            in.Location,
					InvoiceNumber:       in.InvoiceNumber,
					InvoiceDate:         in.InvoiceDate,
					PurchaseInvoiceBlob: invoicePath,
					ReceivedBy:          receiver,
				})
			}
		}

		if err := r.PO.CreateInwardEntries(ctx, entries); err != nil {
			return err
		}
		if err := r.Master.SetOrderingStatus(ctx, completedMasters, entity.OrderingStatusCompleted); err != nil {
			return err
		}
		status, total := entity.AggregateInwardStatus(po.LineItems)
		if err := r.PO.UpdateHeader(ctx, po.ID, map[string]interface{}{
			"inward_status":           status,
			"total_inwarded_quantity": total,
		}); err != nil {
			return err
		}

		out.InwardStatus = status
		out.TotalInwardedQuantity = total
		out.Entries = entries
		pending.Add(notify.New(notify.InwardRecorded,
			fmt.Sprintf("Inward against %s (%s)", po.PONumber, status),
			append([]string{po.CreatedBy}, s.dir.Emails(ctx, entity.RolePurchaser, "")...),
			map[string]interface{}{
				"po_number":      po.PONumber,
				"invoice_number": in.InvoiceNumber,
				"location":       in.Location,
				"inward_status":  status,
				"received":       received,
			}))
		return nil
	})
	if err != nil {
		removeQuietly(ctx, s.blobs, s.logger, invoicePath)
		return nil, err
	}
	s.cache.Invalidate(ctx, cache.InventoryListKey)
	pending.Flush(s.pub)
	s.logger.Info("inward recorded",
		zap.String("po_number", out.PONumber), zap.String("status", out.InwardStatus), zap.Int("total", out.TotalInwardedQuantity))
	return out, nil
}
