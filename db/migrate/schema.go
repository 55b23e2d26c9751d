// Package migrate holds the table definitions for the hiring pipeline and
// applies them with ent's schema migrator (Postgres and SQLite).
package migrate

import (
	"entgo.io/ent/dialect"
	"entgo.io/ent/dialect/entsql"
	"entgo.io/ent/dialect/sql/schema"
	"entgo.io/ent/schema/field"
)

const textSize = 2147483647

var (
	// VacanciesColumns holds the columns for the "vacancies" table.
	VacanciesColumns = []*schema.Column{
		{Name: "id", Type: field.TypeUUID},
		{Name: "title", Type: field.TypeString},
		{Name: "description", Type: field.TypeString, Size: textSize, Default: ""},
		{Name: "requirements", Type: field.TypeString, Size: textSize, Default: ""},
		{Name: "required_skills", Type: field.TypeJSON, Nullable: true},
		{Name: "created_at", Type: field.TypeTime},
	}
	// VacanciesTable holds the schema information for the "vacancies" table.
	VacanciesTable = &schema.Table{
		Name:       "vacancies",
		Columns:    VacanciesColumns,
		PrimaryKey: []*schema.Column{VacanciesColumns[0]},
	}

	// CandidatesColumns holds the columns for the "candidates" table.
	CandidatesColumns = []*schema.Column{
		{Name: "id", Type: field.TypeUUID},
		{Name: "vacancy_id", Type: field.TypeUUID},
		{Name: "resume_blob_key", Type: field.TypeString, Nullable: true},
		{Name: "full_name", Type: field.TypeString, Nullable: true},
		{Name: "email", Type: field.TypeString, Nullable: true},
		{Name: "phone", Type: field.TypeString, Nullable: true},
		{Name: "location", Type: field.TypeString, Nullable: true},
		{Name: "skills", Type: field.TypeJSON, Nullable: true},
		{Name: "experience_years", Type: field.TypeFloat64, Nullable: true},
		{Name: "education", Type: field.TypeJSON, Nullable: true},
		{Name: "work_experience", Type: field.TypeJSON, Nullable: true},
		{Name: "ai_summary", Type: field.TypeString, Size: textSize, Nullable: true},
		{Name: "strengths", Type: field.TypeJSON, Nullable: true},
		{Name: "weaknesses", Type: field.TypeJSON, Nullable: true},
		{Name: "match_score", Type: field.TypeFloat64, Nullable: true},
		{Name: "embedding", Type: field.TypeOther, Nullable: true, SchemaType: map[string]string{
			dialect.Postgres: "vector",
			dialect.SQLite:   "text",
		}},
		{Name: "created_at", Type: field.TypeTime},
		{Name: "updated_at", Type: field.TypeTime},
	}
	// CandidatesTable holds the schema information for the "candidates" table.
	CandidatesTable = &schema.Table{
		Name:       "candidates",
		Columns:    CandidatesColumns,
		PrimaryKey: []*schema.Column{CandidatesColumns[0]},
		ForeignKeys: []*schema.ForeignKey{
			{
				Symbol:     "candidates_vacancies_candidates",
				Columns:    []*schema.Column{CandidatesColumns[1]},
				RefColumns: []*schema.Column{VacanciesColumns[0]},
				OnDelete:   schema.NoAction,
			},
		},
		Indexes: []*schema.Index{
			{
				Name:    "candidate_vacancy_id",
				Unique:  false,
				Columns: []*schema.Column{CandidatesColumns[1]},
			},
		},
	}

	// IngestionJobsColumns holds the columns for the "ingestion_jobs" table.
	IngestionJobsColumns = []*schema.Column{
		{Name: "id", Type: field.TypeUUID},
		{Name: "candidate_id", Type: field.TypeUUID},
		{Name: "vacancy_id", Type: field.TypeUUID},
		{Name: "source_blob_key", Type: field.TypeString},
		{Name: "media_type", Type: field.TypeString},
		{Name: "stage", Type: field.TypeEnum, Enums: []string{"PENDING", "DOWNLOADING", "EXTRACTING_TEXT", "EXTRACTING_PROFILE", "SCORING", "COMPLETED", "FAILED"}, Default: "PENDING"},
		{Name: "raw_text", Type: field.TypeString, Size: textSize, Nullable: true},
		{Name: "error_kind", Type: field.TypeString, Nullable: true},
		{Name: "error_message", Type: field.TypeString, Size: textSize, Nullable: true},
		{Name: "attempts", Type: field.TypeInt, Default: 0},
		{Name: "cancel_requested", Type: field.TypeBool, Default: false},
		{Name: "created_at", Type: field.TypeTime},
		{Name: "updated_at", Type: field.TypeTime},
		{Name: "finished_at", Type: field.TypeTime, Nullable: true},
	}
	// IngestionJobsTable holds the schema information for the "ingestion_jobs" table.
	IngestionJobsTable = &schema.Table{
		Name:       "ingestion_jobs",
		Columns:    IngestionJobsColumns,
		PrimaryKey: []*schema.Column{IngestionJobsColumns[0]},
		ForeignKeys: []*schema.ForeignKey{
			{
				Symbol:     "ingestion_jobs_candidates_jobs",
				Columns:    []*schema.Column{IngestionJobsColumns[1]},
				RefColumns: []*schema.Column{CandidatesColumns[0]},
				OnDelete:   schema.NoAction,
			},
			{
				Symbol:     "ingestion_jobs_vacancies_jobs",
				Columns:    []*schema.Column{IngestionJobsColumns[2]},
				RefColumns: []*schema.Column{VacanciesColumns[0]},
				OnDelete:   schema.NoAction,
			},
		},
		Indexes: []*schema.Index{
			{
				Name:    "ingestionjob_candidate_id_stage",
				Unique:  false,
				Columns: []*schema.Column{IngestionJobsColumns[1], IngestionJobsColumns[5]},
			},
		},
	}

	// PipelineStagesColumns holds the columns for the "pipeline_stages" table.
	PipelineStagesColumns = []*schema.Column{
		{Name: "id", Type: field.TypeUUID},
		{Name: "vacancy_id", Type: field.TypeUUID},
		{Name: "name", Type: field.TypeString},
		{Name: "slug", Type: field.TypeString},
		{Name: "position", Type: field.TypeInt},
		{Name: "color_hint", Type: field.TypeString, Default: ""},
	}
	// PipelineStagesTable holds the schema information for the "pipeline_stages" table.
	PipelineStagesTable = &schema.Table{
		Name:       "pipeline_stages",
		Columns:    PipelineStagesColumns,
		PrimaryKey: []*schema.Column{PipelineStagesColumns[0]},
		ForeignKeys: []*schema.ForeignKey{
			{
				Symbol:     "pipeline_stages_vacancies_stages",
				Columns:    []*schema.Column{PipelineStagesColumns[1]},
				RefColumns: []*schema.Column{VacanciesColumns[0]},
				OnDelete:   schema.Cascade,
			},
		},
		Indexes: []*schema.Index{
			{
				Name:    "pipelinestage_vacancy_id_position",
				Unique:  true,
				Columns: []*schema.Column{PipelineStagesColumns[1], PipelineStagesColumns[4]},
			},
		},
	}

	// StageAssignmentsColumns holds the columns for the "stage_assignments" table.
	StageAssignmentsColumns = []*schema.Column{
		{Name: "candidate_id", Type: field.TypeUUID},
		{Name: "stage_id", Type: field.TypeUUID},
		{Name: "updated_at", Type: field.TypeTime},
	}
	// StageAssignmentsTable holds the schema information for the "stage_assignments" table.
	StageAssignmentsTable = &schema.Table{
		Name:       "stage_assignments",
		Columns:    StageAssignmentsColumns,
		PrimaryKey: []*schema.Column{StageAssignmentsColumns[0]},
		ForeignKeys: []*schema.ForeignKey{
			{
				Symbol:     "stage_assignments_candidates_assignment",
				Columns:    []*schema.Column{StageAssignmentsColumns[0]},
				RefColumns: []*schema.Column{CandidatesColumns[0]},
				OnDelete:   schema.NoAction,
			},
			{
				Symbol:     "stage_assignments_pipeline_stages_assignments",
				Columns:    []*schema.Column{StageAssignmentsColumns[1]},
				RefColumns: []*schema.Column{PipelineStagesColumns[0]},
				OnDelete:   schema.NoAction,
			},
		},
	}

	// StageMovesColumns holds the columns for the "stage_moves" table.
	StageMovesColumns = []*schema.Column{
		{Name: "id", Type: field.TypeUUID},
		{Name: "candidate_id", Type: field.TypeUUID},
		{Name: "from_stage_id", Type: field.TypeUUID, Nullable: true},
		{Name: "to_stage_id", Type: field.TypeUUID},
		{Name: "moved_by", Type: field.TypeString},
		{Name: "note", Type: field.TypeString, Size: textSize, Default: ""},
		{Name: "seq", Type: field.TypeInt},
		{Name: "created_at", Type: field.TypeTime},
	}
	// StageMovesTable holds the schema information for the "stage_moves" table.
	StageMovesTable = &schema.Table{
		Name:       "stage_moves",
		Columns:    StageMovesColumns,
		PrimaryKey: []*schema.Column{StageMovesColumns[0]},
		ForeignKeys: []*schema.ForeignKey{
			{
				Symbol:     "stage_moves_candidates_moves",
				Columns:    []*schema.Column{StageMovesColumns[1]},
				RefColumns: []*schema.Column{CandidatesColumns[0]},
				OnDelete:   schema.NoAction,
			},
		},
		Indexes: []*schema.Index{
			{
				Name:    "stagemove_candidate_id_seq",
				Unique:  true,
				Columns: []*schema.Column{StageMovesColumns[1], StageMovesColumns[6]},
			},
		},
	}

	// Tables holds all the tables in the schema.
	Tables = []*schema.Table{
		VacanciesTable,
		CandidatesTable,
		IngestionJobsTable,
		PipelineStagesTable,
		StageAssignmentsTable,
		StageMovesTable,
	}
)

func init() {
	CandidatesTable.ForeignKeys[0].RefTable = VacanciesTable
	CandidatesTable.Annotation = &entsql.Annotation{
		Table: "candidates",
		Checks: map[string]string{
			"candidates_score_has_summary": "match_score IS NULL OR ai_summary IS NOT NULL",
			"candidates_score_range":       "match_score IS NULL OR (match_score >= 0 AND match_score <= 100)",
		},
	}
	IngestionJobsTable.ForeignKeys[0].RefTable = CandidatesTable
	IngestionJobsTable.ForeignKeys[1].RefTable = VacanciesTable
	PipelineStagesTable.ForeignKeys[0].RefTable = VacanciesTable
	StageAssignmentsTable.ForeignKeys[0].RefTable = CandidatesTable
	StageAssignmentsTable.ForeignKeys[1].RefTable = PipelineStagesTable
	StageMovesTable.ForeignKeys[0].RefTable = CandidatesTable
}
