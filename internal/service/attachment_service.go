package service

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/sirupsen/logrus"

	"qbridge/internal/domain"
	"qbridge/internal/port"
)

const attachablePageSize = 100

// DefaultCopyEntities is the entity set copied when the caller names none.
// Narrower than the scan set: only document types whose attachments are
// worth migrating by default.
var DefaultCopyEntities = []domain.EntityType{
	domain.EntityInvoice,
	domain.EntityCreditMemo,
	domain.EntityBill,
	domain.EntityVendorCredit,
	domain.EntitySalesReceipt,
	domain.EntityEstimate,
}

// ScanTypeStats summarizes the attachments found for one entity type.
type ScanTypeStats struct {
	TotalAttachables int `json:"totalAttachables"`
	WithFileURI      int `json:"withFileUri"`
}

// ScanReport is the result of an attachment scan over the source tenant.
type ScanReport struct {
	Stats  map[string]ScanTypeStats `json:"stats"`
	Errors []string                 `json:"errors"`
}

// CopyTypeStats counts the outcomes of one entity type's copy pass. Every
// attachment link lands in exactly one outcome counter.
type CopyTypeStats struct {
	TotalAttachables int `json:"totalAttachables"`
	TotalLinks       int `json:"totalLinks"`
	Copied           int `json:"copied"`
	SkippedNoFile    int `json:"skippedNoFile"`
	MissingSourceDoc int `json:"missingSourceDoc"`
	MissingDocNumber int `json:"missingDocNumber"`
	MissingTargetDoc int `json:"missingTargetDoc"`
	UploadFailed     int `json:"uploadFailed"`
}

// CopyReport is the result of an attachment copy run.
type CopyReport struct {
	Summary map[string]CopyTypeStats `json:"summary"`
	Errors  []string                 `json:"errors"`
}

// AttachmentService migrates attachments between the source and target
// tenants by matching documents on their business document number.
type AttachmentService interface {
	Scan(ctx context.Context, docTypes []domain.EntityType) (*ScanReport, error)
	Copy(ctx context.Context, docTypes []domain.EntityType) (*CopyReport, error)
}

type attachmentService struct {
	store       port.ConnectionStore
	query       port.QueryClient
	email       port.EmailSender
	reportEmail string
	log         *logrus.Logger
}

// NewAttachmentService creates an AttachmentService. email may be a noop
// sender; a copy-run summary is mailed to reportEmail when it is non-empty.
func NewAttachmentService(store port.ConnectionStore, query port.QueryClient, email port.EmailSender, reportEmail string, log *logrus.Logger) AttachmentService {
	return &attachmentService{
		store:       store,
		query:       query,
		email:       email,
		reportEmail: reportEmail,
		log:         log,
	}
}

// pair returns the source and target connections, failing with a slot error
// when either is not usable.
func (s *attachmentService) pair() (from, to domain.Connection, err error) {
	from = s.store.Get(domain.SlotFrom)
	if !from.Usable() {
		return from, to, domain.NewSlotError(domain.SlotFrom)
	}
	to = s.store.Get(domain.SlotTo)
	if !to.Usable() {
		return from, to, domain.NewSlotError(domain.SlotTo)
	}
	return from, to, nil
}

// Scan counts the attachments linked to each requested entity type in the
// source tenant. A failure for one type is recorded and the scan moves on.
func (s *attachmentService) Scan(ctx context.Context, docTypes []domain.EntityType) (*ScanReport, error) {
	from, _, err := s.pair()
	if err != nil {
		return nil, err
	}
	if len(docTypes) == 0 {
		docTypes = domain.AllCopyableEntities
	}

	report := &ScanReport{
		Stats:  make(map[string]ScanTypeStats, len(docTypes)),
		Errors: []string{},
	}

	for _, entity := range docTypes {
		s.log.WithField("type", entity).Info("scanning attachments")

		attachables, err := s.fetchAttachables(ctx, from, entity)
		if err != nil {
			s.log.WithError(err).WithField("type", entity).Warn("attachment scan failed")
			report.Errors = append(report.Errors, fmt.Sprintf("Type %s: %v", entity, err))
			continue
		}

		stats := ScanTypeStats{TotalAttachables: len(attachables)}
		for _, att := range attachables {
			if att.FileURL() != "" {
				stats.WithFileURI++
			}
		}
		report.Stats[string(entity)] = stats
	}
	return report, nil
}

// Copy migrates attachments for each requested entity type: for every
// attachment link it resolves the source document, extracts its matching
// key, finds the target document with the same key, then downloads and
// re-uploads the file. Failures are counted per link and never abort the run.
func (s *attachmentService) Copy(ctx context.Context, docTypes []domain.EntityType) (*CopyReport, error) {
	from, to, err := s.pair()
	if err != nil {
		return nil, err
	}
	if len(docTypes) == 0 {
		docTypes = DefaultCopyEntities
	}

	report := &CopyReport{
		Summary: make(map[string]CopyTypeStats, len(docTypes)),
		Errors:  []string{},
	}

	// Cache source documents per run so repeated links to the same
	// transaction cost one fetch. Absent documents are cached too.
	sourceDocs := make(map[string]*domain.Transaction)

	for _, entity := range docTypes {
		s.log.WithField("type", entity).Info("copying attachments")
		stats := CopyTypeStats{}

		attachables, err := s.fetchAttachables(ctx, from, entity)
		if err != nil {
			report.Errors = append(report.Errors, fmt.Sprintf("Type %s copy failed (top-level): %v", entity, err))
			report.Summary[string(entity)] = stats
			continue
		}
		stats.TotalAttachables = len(attachables)

		for i := range attachables {
			att := &attachables[i]
			if att.FileURL() == "" {
				stats.SkippedNoFile++
				continue
			}

			for _, ref := range att.AttachableRef {
				if ref.EntityRef == nil || ref.EntityRef.Type != string(entity) {
					continue
				}
				stats.TotalLinks++

				sourceID := ref.EntityRef.Value
				if sourceID == "" {
					stats.MissingSourceDoc++
					continue
				}

				sourceDoc, err := s.sourceDoc(ctx, from, entity, sourceID, sourceDocs)
				if err != nil {
					stats.MissingSourceDoc++
					report.Errors = append(report.Errors,
						fmt.Sprintf("Source fetch failed (%s #%s): %v", entity, sourceID, err))
					continue
				}
				if sourceDoc == nil {
					stats.MissingSourceDoc++
					continue
				}

				docNumber := entity.MatchKey(sourceDoc)
				if docNumber == "" {
					stats.MissingDocNumber++
					report.Errors = append(report.Errors,
						fmt.Sprintf("No DocNumber for source %s #%s (attachment %s)", entity, sourceID, att.ID))
					continue
				}

				targetDoc, err := s.findTargetByDocNumber(ctx, to, entity, docNumber)
				if err != nil {
					report.Errors = append(report.Errors,
						fmt.Sprintf("Target lookup failed (%s, DocNumber=%s): %v", entity, docNumber, err))
				}
				if targetDoc == nil || targetDoc.ID == "" {
					stats.MissingTargetDoc++
					report.Errors = append(report.Errors,
						fmt.Sprintf("No target %s found for DocNumber=%s (source %s, attachment %s)",
							entity, docNumber, sourceID, att.ID))
					continue
				}

				file, err := s.query.DownloadFile(ctx, from, att)
				if err != nil {
					stats.SkippedNoFile++
					report.Errors = append(report.Errors,
						fmt.Sprintf("Download failed (attachment %s, %s DocNumber=%s): %v", att.ID, entity, docNumber, err))
					continue
				}

				if err := s.query.UploadAttachment(ctx, to, entity, targetDoc.ID, file, att.Note); err != nil {
					stats.UploadFailed++
					report.Errors = append(report.Errors,
						fmt.Sprintf("Upload failed (attachment %s -> %s #%s, DocNumber=%s): %v",
							att.ID, entity, targetDoc.ID, docNumber, err))
					continue
				}
				stats.Copied++
			}
		}

		report.Summary[string(entity)] = stats
	}

	s.sendReport(ctx, report)
	return report, nil
}

// fetchAttachables pages through every attachment linked to the given entity
// type in the source tenant.
func (s *attachmentService) fetchAttachables(ctx context.Context, conn domain.Connection, entity domain.EntityType) ([]domain.Attachable, error) {
	where := fmt.Sprintf("AttachableRef.EntityRef.type = '%s'", entity)

	var all []domain.Attachable
	startPos := 1
	for {
		rows, err := s.query.QueryPage(ctx, conn, domain.EntityAttachable, where, startPos, attachablePageSize)
		if err != nil {
			return nil, err
		}
		if len(rows) == 0 {
			break
		}
		page, err := decodeAll[domain.Attachable](rows)
		if err != nil {
			return nil, err
		}
		all = append(all, page...)
		if len(rows) < attachablePageSize {
			break
		}
		startPos += attachablePageSize
	}
	return all, nil
}

// sourceDoc fetches a source document by id, memoizing both hits and misses
// for the duration of the run.
func (s *attachmentService) sourceDoc(ctx context.Context, conn domain.Connection, entity domain.EntityType, id string, cache map[string]*domain.Transaction) (*domain.Transaction, error) {
	cacheKey := fmt.Sprintf("%s:%s", entity, id)
	if doc, ok := cache[cacheKey]; ok {
		return doc, nil
	}

	raw, err := s.query.FetchByID(ctx, conn, entity, id)
	if err != nil {
		return nil, err
	}
	if raw == nil {
		cache[cacheKey] = nil
		return nil, nil
	}

	var doc domain.Transaction
	if err := json.Unmarshal(raw, &doc); err != nil {
		return nil, fmt.Errorf("decoding %s #%s: %w", entity, id, err)
	}
	cache[cacheKey] = &doc
	return &doc, nil
}

// findTargetByDocNumber looks up the matching document in the target tenant.
// Matching keys are assumed unique, so the first hit wins.
func (s *attachmentService) findTargetByDocNumber(ctx context.Context, conn domain.Connection, entity domain.EntityType, docNumber string) (*domain.Transaction, error) {
	where := fmt.Sprintf("DocNumber = '%s'", escapeLiteral(docNumber))
	rows, err := s.query.QueryPage(ctx, conn, entity, where, 1, 10)
	if err != nil {
		return nil, err
	}
	if len(rows) == 0 {
		return nil, nil
	}
	var doc domain.Transaction
	if err := json.Unmarshal(rows[0], &doc); err != nil {
		return nil, fmt.Errorf("decoding target %s: %w", entity, err)
	}
	return &doc, nil
}

// sendReport mails a copy-run summary when a report address is configured.
// Delivery failure is logged, never surfaced to the caller.
func (s *attachmentService) sendReport(ctx context.Context, report *CopyReport) {
	if s.email == nil || s.reportEmail == "" {
		return
	}

	var copied, failed int
	for _, stats := range report.Summary {
		copied += stats.Copied
		failed += stats.UploadFailed + stats.MissingTargetDoc + stats.MissingSourceDoc + stats.MissingDocNumber
	}
	body := fmt.Sprintf(
		"Attachment copy run finished.\n\nCopied: %d\nNot copied: %d\nErrors recorded: %d\n",
		copied, failed, len(report.Errors))

	if err := s.email.SendCopyReport(ctx, s.reportEmail, "Attachment copy run summary", body); err != nil {
		s.log.WithError(err).Warn("copy report email failed")
	}
}
