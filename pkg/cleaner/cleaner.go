// pkg/cleaner/cleaner.go
package cleaner

import (
	"errors"
	"fmt"

	"go.uber.org/zap"

	"github.com/David-Botos/qguide-analysis/pkg/model"
	"github.com/David-Botos/qguide-analysis/pkg/runerrors"
)

// DataCleaner turns raw evaluation records into analysis rows, keeping an
// audit record for every row it excludes
type DataCleaner struct {
	labels    *model.LabelTable
	logger    *zap.Logger
	collector *runerrors.Collector
}

// Result is the output of one cleaning pass
type Result struct {
	Rows         []model.AnalysisRow
	Drops        []model.DropRecord
	Accounting   model.Accounting
	LooseMatches int
	DropReasons  map[string]int
}

// NewDataCleaner creates a new DataCleaner instance
func NewDataCleaner(labels *model.LabelTable, logger *zap.Logger, collector *runerrors.Collector) (*DataCleaner, error) {
	if labels == nil {
		return nil, errors.New("label table cannot be nil")
	}
	if logger == nil {
		return nil, errors.New("logger cannot be nil")
	}
	if collector == nil {
		collector = runerrors.NewCollector(logger)
	}

	return &DataCleaner{
		labels:    labels,
		logger:    logger.Named("cleaner"),
		collector: collector,
	}, nil
}

// Clean is a convenience wrapper using a no-op logger
func Clean(records []model.RawEvaluationRecord, labels *model.LabelTable) (*Result, error) {
	c, err := NewDataCleaner(labels, zap.NewNop(), nil)
	if err != nil {
		return nil, err
	}
	return c.Clean(records)
}

// Clean processes records in order. A row is dropped for missing scores
// first; rows with usable scores are then joined to the label table and
// dropped when the lecturer's gender is not female or male.
func (c *DataCleaner) Clean(records []model.RawEvaluationRecord) (*Result, error) {
	res := &Result{
		Rows:        make([]model.AnalysisRow, 0, len(records)),
		DropReasons: make(map[string]int),
	}
	res.Accounting.RawRows = len(records)

	for _, rec := range records {
		if reason, ok := checkScores(rec); !ok {
			res.drop(rec, "", model.DropMissingScore, reason)
			res.Accounting.DroppedMissingScore++
			c.collector.Record(runerrors.Record{
				Category: runerrors.CategoryMissingScore,
				Subject:  rowSubject(rec),
				Message:  reason,
			})
			continue
		}

		m := resolveGender(rec, c.labels)
		if m.reason != "" {
			res.drop(rec, m.key, model.DropUnresolvedGender, m.reason)
			res.Accounting.DroppedUnresolvedGender++
			c.collector.Add(&runerrors.UnresolvedNameError{Name: rec.LecturerName, Reason: m.reason}, rowSubject(rec))
			continue
		}

		if m.mode == model.MatchLoose {
			res.LooseMatches++
			c.logger.Debug("Joined lecturer on loose key",
				zap.Int("line", rec.Line),
				zap.String("name", m.key),
				zap.String("label", m.label.Name))
		}

		res.Rows = append(res.Rows, model.AnalysisRow{
			Line:          rec.Line,
			CourseID:      rec.CourseID,
			LecturerName:  rec.LecturerName,
			FirstNameKey:  m.key,
			Gender:        m.label.Gender,
			Female:        m.label.Gender.Indicator(),
			CourseScore:   *rec.CourseScore,
			LecturerScore: *rec.LecturerScore,
			Enrollment:    rec.Enrollment,
			Responses:     rec.Responses,
			Department:    rec.Department,
			MatchMode:     m.mode,
		})
	}

	res.Accounting.CleanRows = len(res.Rows)
	if !res.Accounting.Balanced() {
		return nil, fmt.Errorf("row accounting does not balance: %+v", res.Accounting)
	}

	c.logger.Info("Cleaned evaluation records",
		zap.Int("raw", res.Accounting.RawRows),
		zap.Int("clean", res.Accounting.CleanRows),
		zap.Int("droppedMissingScore", res.Accounting.DroppedMissingScore),
		zap.Int("droppedUnresolvedGender", res.Accounting.DroppedUnresolvedGender),
		zap.Int("looseMatches", res.LooseMatches))

	return res, nil
}

func (r *Result) drop(rec model.RawEvaluationRecord, key string, category model.DropCategory, reason string) {
	r.Drops = append(r.Drops, model.DropRecord{
		Line:         rec.Line,
		CourseID:     rec.CourseID,
		LecturerName: rec.LecturerName,
		FirstNameKey: key,
		Category:     category,
		Reason:       reason,
	})
	r.DropReasons[reason]++
}

func rowSubject(rec model.RawEvaluationRecord) string {
	return fmt.Sprintf("row %d (%s)", rec.Line, rec.CourseID)
}
