// pkg/publish/tables.go
package publish

import (
	"math"

	"github.com/David-Botos/qguide-analysis/pkg/model"
)

// Published table names
const (
	TableAnalysisRows = "qguide_analysis_rows"
	TableCoefficients = "qguide_coefficients"
	TableModelSummary = "qguide_model_summary"
)

func col(name, sqlType string, nullable bool) model.Column {
	return model.Column{Name: name, SQLType: sqlType, Nullable: nullable}
}

// AnalysisRowsMetadata describes the cleaned table
func AnalysisRowsMetadata(schema string) model.TableMetadata {
	return model.TableMetadata{
		Schema: schema,
		Table:  TableAnalysisRows,
		Columns: []model.Column{
			col("run_id", "TEXT", false),
			col("line", "INTEGER", false),
			col("course_id", "TEXT", true),
			col("lecturer_name", "TEXT", true),
			col("first_name", "TEXT", false),
			col("gender", "TEXT", false),
			col("female", "INTEGER", false),
			col("course_score_mean", "DOUBLE PRECISION", false),
			col("lecturer_score_mean", "DOUBLE PRECISION", false),
			col("enrollment", "INTEGER", true),
			col("responses", "INTEGER", true),
			col("response_rate", "DOUBLE PRECISION", true),
			col("log_enrollment", "DOUBLE PRECISION", true),
			col("department", "TEXT", true),
			col("dept_mean_enrollment", "DOUBLE PRECISION", true),
			col("ideology", "DOUBLE PRECISION", true),
			col("match_mode", "TEXT", false),
		},
		PrimaryKeys: []string{"run_id", "line"},
	}
}

// CoefficientsMetadata describes the coefficient table
func CoefficientsMetadata(schema string) model.TableMetadata {
	return model.TableMetadata{
		Schema: schema,
		Table:  TableCoefficients,
		Columns: []model.Column{
			col("run_id", "TEXT", false),
			col("model", "TEXT", false),
			col("outcome", "TEXT", false),
			col("term", "TEXT", false),
			col("estimate", "DOUBLE PRECISION", true),
			col("std_error", "DOUBLE PRECISION", true),
			col("t", "DOUBLE PRECISION", true),
			col("p_value", "DOUBLE PRECISION", true),
		},
		PrimaryKeys: []string{"run_id", "model", "term"},
	}
}

// ModelSummaryMetadata describes the per-model table
func ModelSummaryMetadata(schema string) model.TableMetadata {
	return model.TableMetadata{
		Schema: schema,
		Table:  TableModelSummary,
		Columns: []model.Column{
			col("run_id", "TEXT", false),
			col("model", "TEXT", false),
			col("outcome", "TEXT", false),
			col("n", "INTEGER", false),
			col("k", "INTEGER", false),
			col("r_squared", "DOUBLE PRECISION", true),
			col("adj_r_squared", "DOUBLE PRECISION", true),
			col("residual_se", "DOUBLE PRECISION", true),
			col("status", "TEXT", false),
			col("error", "TEXT", true),
		},
		PrimaryKeys: []string{"run_id", "model"},
	}
}

func analysisRowValues(runID string, rows []model.AnalysisRow) [][]interface{} {
	out := make([][]interface{}, len(rows))
	for i, r := range rows {
		out[i] = []interface{}{
			runID,
			r.Line,
			nullString(r.CourseID),
			nullString(r.LecturerName),
			r.FirstNameKey,
			string(r.Gender),
			int(r.Female),
			r.CourseScore,
			r.LecturerScore,
			intPtr(r.Enrollment),
			intPtr(r.Responses),
			floatPtr(r.ResponseRate),
			floatPtr(r.LogEnrollment),
			nullString(r.Department),
			floatPtr(r.DeptMeanEnrollment),
			floatPtr(r.Ideology),
			string(r.MatchMode),
		}
	}
	return out
}

func coefficientValues(runID string, models []model.ModelResult) [][]interface{} {
	var out [][]interface{}
	for _, m := range models {
		for _, c := range m.Terms {
			out = append(out, []interface{}{
				runID, m.Name, m.Outcome, c.Term,
				nullFloat(c.Estimate), nullFloat(c.StdErr), nullFloat(c.TStat), nullFloat(c.PValue),
			})
		}
	}
	return out
}

func modelSummaryValues(runID string, models []model.ModelResult) [][]interface{} {
	out := make([][]interface{}, len(models))
	for i, m := range models {
		row := []interface{}{runID, m.Name, m.Outcome, m.N, m.K, nil, nil, nil, "failed", nullString(m.Err)}
		if m.OK() {
			row[5], row[6], row[7], row[8] = nullFloat(m.RSquared), nullFloat(m.AdjRSquared), nullFloat(m.ResidualStdErr), "ok"
		}
		out[i] = row
	}
	return out
}

// nullFloat maps NaN and infinities to NULL
func nullFloat(v float64) interface{} {
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return nil
	}
	return v
}

func floatPtr(v *float64) interface{} {
	if v == nil {
		return nil
	}
	return nullFloat(*v)
}

func intPtr(v *int) interface{} {
	if v == nil {
		return nil
	}
	return *v
}

func nullString(s string) interface{} {
	if s == "" {
		return nil
	}
	return s
}
