package main

import (
	"context"
	"fmt"
	"os"
	"time"

	"github.com/gartstein/selfservice/internal/selfservice/auth"
	"github.com/gartstein/selfservice/internal/selfservice/config"
	"github.com/gartstein/selfservice/internal/selfservice/db"
	dbmodels "github.com/gartstein/selfservice/internal/selfservice/db/models"
	"github.com/gartstein/selfservice/internal/selfservice/models"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"gopkg.in/yaml.v3"
)

// seedFile is the YAML (or JSON) layout accepted by the seed command.
type seedFile struct {
	Companies []struct {
		ID   string `yaml:"id"`
		Name string `yaml:"name"`
	} `yaml:"companies"`
	Employees []struct {
		ID           string         `yaml:"employee_id"`
		Email        string         `yaml:"email"`
		Password     string         `yaml:"password"`
		FirstName    string         `yaml:"first_name"`
		LastName     string         `yaml:"last_name"`
		Designation  string         `yaml:"designation"`
		Location     string         `yaml:"location"`
		CompanyID    string         `yaml:"comp_id"`
		ManagerEmail string         `yaml:"manager_email"`
		LeaveDays    map[string]int `yaml:"leave_days"`
	} `yaml:"employees"`
	Jobs []struct {
		ID          string `yaml:"job_id"`
		CompanyID   string `yaml:"comp_id"`
		Title       string `yaml:"title"`
		Description string `yaml:"description"`
		Location    string `yaml:"location"`
		Department  string `yaml:"department"`
	} `yaml:"jobs"`
	Promotions []struct {
		JobID       string   `yaml:"job_id"`
		CompanyID   string   `yaml:"comp_id"`
		Title       string   `yaml:"title"`
		Description string   `yaml:"description"`
		Location    string   `yaml:"location"`
		Candidates  []string `yaml:"candidates"`
	} `yaml:"promotions"`
}

func seedCmd() *cobra.Command {
	var (
		tenantName string
		file       string
	)

	cmd := &cobra.Command{
		Use:   "seed",
		Short: "Load companies, employees and jobs into a tenant database",
		Long: `Load companies, employees, jobs and job promotions from a YAML or JSON
file into a tenant database. Plain-text passwords are stored as bcrypt hashes.

Example:
  selfservice seed --tenant acme --file seed/acme.yaml`,
		RunE: func(cmd *cobra.Command, _ []string) error {
			logger := initLogger()
			defer syncLogger(logger)

			cfg, err := config.Load(configPath)
			if err != nil {
				return err
			}
			raw, err := os.ReadFile(file)
			if err != nil {
				return fmt.Errorf("read seed file: %w", err)
			}
			var data seedFile
			if err := yaml.Unmarshal(raw, &data); err != nil {
				return fmt.Errorf("parse seed file: %w", err)
			}
			return seed(cmd.Context(), cfg, tenantName, &data, logger)
		},
	}

	cmd.Flags().StringVar(&tenantName, "tenant", "", "tenant database to seed")
	cmd.Flags().StringVar(&file, "file", "", "seed file (YAML or JSON)")
	_ = cmd.MarkFlagRequired("tenant")
	_ = cmd.MarkFlagRequired("file")
	return cmd
}

func seed(ctx context.Context, cfg *config.Config, tenantName string, data *seedFile, logger *zap.Logger) error {
	registry, err := newRegistry(cfg, logger)
	if err != nil {
		return err
	}
	defer registry.Close()

	now := time.Now().UTC()
	err = registry.WithTenant(ctx, tenantName, func(repo *db.Repository) error {
		if err := repo.Migrate(ctx); err != nil {
			return err
		}
		return repo.WithTransaction(ctx, func(tx *db.Repository) error {
			for _, c := range data.Companies {
				if err := tx.CreateCompany(ctx, c.ID, c.Name); err != nil {
					return fmt.Errorf("company %s: %w", c.ID, err)
				}
			}
			for _, emp := range data.Employees {
				hash, err := auth.HashPassword(emp.Password)
				if err != nil {
					return fmt.Errorf("employee %s: %w", emp.ID, err)
				}
				balance := models.LeaveBalance{}
				for leaveType, days := range emp.LeaveDays {
					balance[leaveType] = models.LeaveEntry{Allocated: days, Remaining: days}
				}
				err = tx.CreateEmployee(ctx, &models.Employee{
					ID:           emp.ID,
					Email:        emp.Email,
					FirstName:    emp.FirstName,
					LastName:     emp.LastName,
					Designation:  emp.Designation,
					Location:     emp.Location,
					CompanyID:    emp.CompanyID,
					ManagerEmail: emp.ManagerEmail,
					PasswordHash: hash,
					LeaveBalance: balance,
				})
				if err != nil {
					return fmt.Errorf("employee %s: %w", emp.ID, err)
				}
			}
			for _, j := range data.Jobs {
				err := tx.CreateJob(ctx, &models.Job{
					ID:          j.ID,
					CompanyID:   j.CompanyID,
					Title:       j.Title,
					Description: j.Description,
					Location:    j.Location,
					Department:  j.Department,
					CreatedAt:   now,
				})
				if err != nil {
					return fmt.Errorf("job %s: %w", j.ID, err)
				}
			}
			for _, p := range data.Promotions {
				candidates := make([]dbmodels.Candidate, 0, len(p.Candidates))
				for _, email := range p.Candidates {
					candidates = append(candidates, dbmodels.Candidate{Email: email})
				}
				err := tx.CreatePromotion(ctx, &dbmodels.JobPromotion{
					JobID:           p.JobID,
					CompanyID:       p.CompanyID,
					Title:           p.Title,
					Description:     p.Description,
					Location:        p.Location,
					CandidateEmails: candidates,
					CreatedAt:       now,
				})
				if err != nil {
					return fmt.Errorf("promotion %s: %w", p.JobID, err)
				}
			}
			return nil
		})
	})
	if err != nil {
		return err
	}

	logger.Info("Tenant seeded",
		zap.String("tenant", tenantName),
		zap.Int("companies", len(data.Companies)),
		zap.Int("employees", len(data.Employees)),
		zap.Int("jobs", len(data.Jobs)),
		zap.Int("promotions", len(data.Promotions)),
	)
	return nil
}
