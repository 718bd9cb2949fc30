package db

import (
	"fmt"

	"gorm.io/driver/postgres"
	"gorm.io/gorm"

	"github.com/polizaflow/agency-backend/internal/logger"
	"github.com/polizaflow/agency-backend/internal/types"
	"github.com/polizaflow/agency-backend/internal/utils"
)

type PostgresService struct {
	db  *gorm.DB
	log *logger.Logger
}

func NewPostgresService(log *logger.Logger) (*PostgresService, error) {
	serviceLog := log.With("service", "PostgresService")

	log.Info("Loading environment variables...")
	postgresHost := utils.GetEnv("POSTGRES_HOST", "localhost", log)
	postgresPort := utils.GetEnv("POSTGRES_PORT", "5432", log)
	postgresUser := utils.GetEnv("POSTGRES_USER", "postgres", log)
	postgresPassword := utils.GetEnv("POSTGRES_PASSWORD", "", log)
	postgresName := utils.GetEnv("POSTGRES_NAME", "polizaflow", log)
	log.Debug("Environment variables loaded")

	dsn := fmt.Sprintf("postgres://%s:%s@%s:%s/%s?sslmode=disable", postgresUser, postgresPassword, postgresHost, postgresPort, postgresName)

	log.Info("Connecting to Postgres...")
	db, err := gorm.Open(postgres.Open(dsn), &gorm.Config{
		DisableForeignKeyConstraintWhenMigrating: true,
	})
	if err != nil {
		log.Error("Failed to connect to Postgres", "error", err)
		return nil, fmt.Errorf("Failed to connect to Postgres: %w", err)
	}

	if err := db.Exec(`CREATE EXTENSION IF NOT EXISTS "uuid-ossp";`).Error; err != nil {
		log.Error("Failed to enable uuid-ossp extension", "error", err)
		return nil, fmt.Errorf("Failed to enable uuid-ossp extension: %w", err)
	}
	log.Info("uuid-ossp extension enabled")

	return &PostgresService{db: db, log: serviceLog}, nil
}

func (s *PostgresService) AutoMigrateAll() error {
	s.log.Info("Auto migrating postgres tables...")
	err := s.db.AutoMigrate(
		&types.Agent{},
		&types.AgentToken{},
		&types.Client{},
		&types.Insured{},
		&types.Policy{},
		&types.Beneficiary{},
		&types.PolicyAiImport{},
		&types.PolicyAiImportFile{},
		&types.PolicyWizardDraft{},
		&types.Lead{},
		&types.Commission{},
		&types.CalendarCredential{},
	)
	if err != nil {
		s.log.Error("Auto migration failed for postgres tables", "error", err)
		return err
	}
	s.log.Info("Configuring foreign key relationships for postgres tables...")
	if err := s.db.Exec(`
		ALTER TABLE "agent_token"
		ADD CONSTRAINT "fk_agent_token_agent_id"
		FOREIGN KEY ("agent_id")
		REFERENCES "agent"("id")
		ON DELETE CASCADE
	`).Error; err != nil {
		return fmt.Errorf("Failed to add fk_agent_token_agent_id: %w", err)
	}
	if err := s.db.Exec(`
		ALTER TABLE "policy_ai_import_file"
		ADD CONSTRAINT "fk_policy_ai_import_file_import_id"
		FOREIGN KEY ("import_id")
		REFERENCES "policy_ai_import"("id")
		ON DELETE CASCADE
	`).Error; err != nil {
		return fmt.Errorf("Failed to add fk_policy_ai_import_file_import_id: %w", err)
	}
	if err := s.db.Exec(`
		ALTER TABLE "beneficiary"
		ADD CONSTRAINT "fk_beneficiary_policy_id"
		FOREIGN KEY ("policy_id")
		REFERENCES "policy"("id")
		ON DELETE CASCADE
	`).Error; err != nil {
		return fmt.Errorf("Failed to add fk_beneficiary_policy_id: %w", err)
	}
	return nil
}

func (s *PostgresService) DB() *gorm.DB {
	return s.db
}
