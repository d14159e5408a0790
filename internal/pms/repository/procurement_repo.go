package repository

import (
	"context"
	"time"

	"github.com/pratyush-pilli/cimventory-sub000/internal/pms/entity"
	"gorm.io/gorm"
)

// ProjectRepository project registry
type ProjectRepository struct {
	db *gorm.DB
}

func NewProjectRepository(db *gorm.DB) *ProjectRepository {
	return &ProjectRepository{db: db}
}

func (r *ProjectRepository) Create(ctx context.Context, p *entity.Project) error {
	if p.ID == "" {
		p.ID = entity.NewID()
	}
	return r.db.WithContext(ctx).Create(p).Error
}

func (r *ProjectRepository) FindByID(ctx context.Context, id string) (*entity.Project, error) {
	var p entity.Project
	if err := r.db.WithContext(ctx).Where("id = ?", id).First(&p).Error; err != nil {
		return nil, notFound(err)
	}
	return &p, nil
}

func (r *ProjectRepository) FindByCode(ctx context.Context, code string) (*entity.Project, error) {
	var p entity.Project
	if err := r.db.WithContext(ctx).Where("project_code = ?", code).First(&p).Error; err != nil {
		return nil, notFound(err)
	}
	return &p, nil
}

// LockByCode serializes batch numbering for the project.
func (r *ProjectRepository) LockByCode(ctx context.Context, code string) (*entity.Project, error) {
	var p entity.Project
	if err := r.db.WithContext(ctx).Clauses(forUpdate()).Where("project_code = ?", code).First(&p).Error; err != nil {
		return nil, notFound(err)
	}
	return &p, nil
}

func (r *ProjectRepository) List(ctx context.Context, page, pageSize int, search string) ([]entity.Project, int64, error) {
	var items []entity.Project
	var total int64
	query := r.db.WithContext(ctx).Model(&entity.Project{})
	if search != "" {
		query = query.Where("project_code ILIKE ? OR name ILIKE ?", "%"+search+"%", "%"+search+"%")
	}
	if err := query.Count(&total).Error; err != nil {
		return nil, 0, err
	}
	offset, limit := paginate(page, pageSize)
	err := query.Order("project_code ASC").Offset(offset).Limit(limit).Find(&items).Error
	return items, total, err
}

// RequisitionRepository requisitions and their revision history
type RequisitionRepository struct {
	db *gorm.DB
}

func NewRequisitionRepository(db *gorm.DB) *RequisitionRepository {
	return &RequisitionRepository{db: db}
}

func (r *RequisitionRepository) CreateBatch(ctx context.Context, rows []entity.Requisition) error {
	for i := range rows {
		if rows[i].ID == "" {
			rows[i].ID = entity.NewID()
		}
	}
	return r.db.WithContext(ctx).CreateInBatches(rows, 100).Error
}

// BatchIDs distinct batch ids of a project.
func (r *RequisitionRepository) BatchIDs(ctx context.Context, projectID string) ([]string, error) {
	var ids []string
	err := r.db.WithContext(ctx).Model(&entity.Requisition{}).
		Where("project_id = ?", projectID).
		Distinct().Pluck("batch_id", &ids).Error
	return ids, err
}

func (r *RequisitionRepository) FindByBatch(ctx context.Context, batchID string) ([]entity.Requisition, error) {
	var items []entity.Requisition
	err := r.db.WithContext(ctx).Where("batch_id = ?", batchID).Order("created_at ASC, id ASC").Find(&items).Error
	return items, err
}

func (r *RequisitionRepository) LockByID(ctx context.Context, id string) (*entity.Requisition, error) {
	var req entity.Requisition
	if err := r.db.WithContext(ctx).Clauses(forUpdate()).Where("id = ?", id).First(&req).Error; err != nil {
		return nil, notFound(err)
	}
	return &req, nil
}

// LockBatchRows locks rows of a batch; ids narrows the set when non-empty.
func (r *RequisitionRepository) LockBatchRows(ctx context.Context, batchID string, ids []string) ([]entity.Requisition, error) {
	var items []entity.Requisition
	query := r.db.WithContext(ctx).Clauses(forUpdate()).Where("batch_id = ?", batchID)
	if len(ids) > 0 {
		query = query.Where("id IN ?", ids)
	}
	err := query.Order("id ASC").Find(&items).Error
	return items, err
}

func (r *RequisitionRepository) Save(ctx context.Context, req *entity.Requisition) error {
	return r.db.WithContext(ctx).Save(req).Error
}

// SetDecision bulk-updates the approval columns of ids.
func (r *RequisitionRepository) SetDecision(ctx context.Context, ids []string, status string, approvedBy string, remarks *string) (int64, error) {
	res := r.db.WithContext(ctx).Model(&entity.Requisition{}).
		Where("id IN ?", ids).
		Updates(map[string]interface{}{
			"status":            status,
			"approved_status":   status == entity.RequisitionStatusApproved,
			"approved_by":       approvedBy,
			"rejection_remarks": remarks,
			"updated_at":        time.Now(),
		})
	return res.RowsAffected, res.Error
}

func (r *RequisitionRepository) MarkVerified(ctx context.Context, id string) error {
	return r.db.WithContext(ctx).Model(&entity.Requisition{}).
		Where("id = ?", id).
		Updates(map[string]interface{}{
			"master_entry_exists": true,
			"verification_status": true,
			"updated_at":          time.Now(),
		}).Error
}

func (r *RequisitionRepository) AppendHistory(ctx context.Context, rows []entity.RequisitionHistory) error {
	if len(rows) == 0 {
		return nil
	}
	for i := range rows {
		if rows[i].ID == "" {
			rows[i].ID = entity.NewID()
		}
	}
	return r.db.WithContext(ctx).Create(&rows).Error
}

func (r *RequisitionRepository) HistoryByBatch(ctx context.Context, batchID string) ([]entity.RequisitionHistory, error) {
	var items []entity.RequisitionHistory
	err := r.db.WithContext(ctx).Where("batch_id = ?", batchID).Order("changed_at ASC").Find(&items).Error
	return items, err
}

// BatchSummary one row per batch
type BatchSummary struct {
	BatchID     string    `json:"batch_id"`
	ProjectCode string    `json:"project_code"`
	SubmittedBy string    `json:"submitted_by"`
	Rows        int       `json:"rows" gorm:"column:row_count"`
	Approved    int       `json:"approved"`
	Rejected    int       `json:"rejected"`
	Pending     int       `json:"pending"`
	CreatedAt   time.Time `json:"created_at"`
}

func (r *RequisitionRepository) ListBatches(ctx context.Context, projectCode string) ([]BatchSummary, error) {
	var items []BatchSummary
	query := r.db.WithContext(ctx).Model(&entity.Requisition{}).
		Select(`batch_id, project_code, MIN(submitted_by) AS submitted_by, COUNT(*) AS row_count,
			SUM(CASE WHEN status = 'approved' THEN 1 ELSE 0 END) AS approved,
			SUM(CASE WHEN status = 'rejected' THEN 1 ELSE 0 END) AS rejected,
			SUM(CASE WHEN status = 'pending' THEN 1 ELSE 0 END) AS pending,
			MIN(created_at) AS created_at`).
		Group("batch_id, project_code")
	if projectCode != "" {
		query = query.Where("project_code = ?", projectCode)
	}
	err := query.Order("created_at DESC").Scan(&items).Error
	return items, err
}

// MasterRepository pre-PO master rows
type MasterRepository struct {
	db *gorm.DB
}

func NewMasterRepository(db *gorm.DB) *MasterRepository {
	return &MasterRepository{db: db}
}

func (r *MasterRepository) Create(ctx context.Context, m *entity.Master) error {
	if m.ID == "" {
		m.ID = entity.NewID()
	}
	return r.db.WithContext(ctx).Create(m).Error
}

// LockByIDs loads masters FOR UPDATE in id order.
func (r *MasterRepository) LockByIDs(ctx context.Context, ids []string) ([]entity.Master, error) {
	var items []entity.Master
	err := r.db.WithContext(ctx).Clauses(forUpdate()).Where("id IN ?", ids).Order("id ASC").Find(&items).Error
	return items, err
}

func (r *MasterRepository) SetOrderingStatus(ctx context.Context, ids []string, status string) error {
	if len(ids) == 0 {
		return nil
	}
	return r.db.WithContext(ctx).Model(&entity.Master{}).
		Where("id IN ?", ids).
		Updates(map[string]interface{}{"ordering_status": status, "updated_at": time.Now()}).Error
}

func (r *MasterRepository) List(ctx context.Context, filters map[string]string) ([]entity.Master, error) {
	var items []entity.Master
	query := r.db.WithContext(ctx).Model(&entity.Master{})
	if v := filters["batch_id"]; v != "" {
		query = query.Where("batch_id = ?", v)
	}
	if v := filters["project_code"]; v != "" {
		query = query.Where("project_code = ?", v)
	}
	if v := filters["ordering_status"]; v != "" {
		query = query.Where("ordering_status = ?", v)
	}
	err := query.Order("created_at ASC").Find(&items).Error
	return items, err
}
