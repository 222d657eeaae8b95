package sql

import (
	"database/sql"
	_ "embed"
	"fmt"
	"log"
)

//go:embed init.sql
var initSQL string

//go:embed projects.sql
var projectsSQL string

//go:embed causes.sql
var causesSQL string

//go:embed projections.sql
var projectionsSQL string

// Function lists for verification
var ProjectsFunctions = []string{
	"init_projects",
	"insert_project",
	"select_project",
	"select_projects_with_embedding",
	"select_projects_without_embedding",
	"select_projects_by_cause",
	"select_projects_by_similarity",
	"update_project_embedding",
	"assign_project_causes",
	"clear_project_causes",
	"delete_project",
}

var CausesFunctions = []string{
	"init_causes",
	"insert_cause",
	"select_cause",
	"select_all_causes",
	"select_causes_by_parent",
	"delete_all_causes",
	"delete_cause",
}

var ProjectionsFunctions = []string{
	"init_projections",
	"insert_projection",
	"select_projections_by_scope",
	"delete_projections_by_scope",
	"delete_cause_projections",
}

// Init intializes db extensions
func Init(db *sql.DB) error {
	_, err := db.Exec(initSQL)
	if err != nil {
		return fmt.Errorf("error executing schema SQL: %w", err)
	}

	log.Println("Database extensions initialized successfully")
	return nil
}

// LoadProjectsSql loads project-related SQL functions
func LoadProjectsSql(db *sql.DB, force bool) error {
	return loadSql(db, "projects", projectsSQL, ProjectsFunctions, force)
}

// LoadCausesSql loads cause-related SQL functions
func LoadCausesSql(db *sql.DB, force bool) error {
	return loadSql(db, "causes", causesSQL, CausesFunctions, force)
}

// LoadProjectionsSql loads projection-related SQL functions
func LoadProjectionsSql(db *sql.DB, force bool) error {
	return loadSql(db, "projections", projectionsSQL, ProjectionsFunctions, force)
}

// LoadAllSql loads all SQL functions
func LoadAllSql(db *sql.DB, force bool) error {
	if err := LoadProjectsSql(db, force); err != nil {
		return err
	}

	if err := LoadCausesSql(db, force); err != nil {
		return err
	}

	if err := LoadProjectionsSql(db, force); err != nil {
		return err
	}

	return nil
}

// loadSql executes script unless all functions exist already. With force it
// always executes and then verifies that every function was created.
func loadSql(db *sql.DB, name string, script string, functions []string, force bool) error {
	if !force {
		exist, err := checkFunctions(db, functions)
		if err != nil {
			return fmt.Errorf("error checking existing %s functions: %w", name, err)
		}
		if exist {
			return nil
		}
	}

	_, err := db.Exec(script)
	if err != nil {
		return fmt.Errorf("error executing %s SQL: %w", name, err)
	}

	exist, err := checkFunctions(db, functions)
	if err != nil {
		return fmt.Errorf("error checking existing functions: %w", err)
	}
	if !exist {
		return fmt.Errorf("not all required SQL functions were created")
	}

	log.Printf("SQL %s functions loaded successfully", name)
	return nil
}

// checkFunctions verifies that all required functions exist in the database
func checkFunctions(db *sql.DB, sqlFunctions []string) (bool, error) {
	var allExist bool
	for _, f := range sqlFunctions {
		err := db.QueryRow(
			`SELECT EXISTS(SELECT 1 FROM pg_proc WHERE proname = $1);`,
			f,
		).Scan(&allExist)
		if err != nil {
			return false, fmt.Errorf("error checking existence of function %s: %w", f, err)
		}
		if !allExist {
			log.Printf("Function %s does not exist", f)
			break
		}
	}
	return allExist, nil
}
