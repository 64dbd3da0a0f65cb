package main

import (
	"strings"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"hireflow/internal/domain"
	"hireflow/internal/services/campaigns"
	"hireflow/internal/services/importer"
	"hireflow/internal/services/pipeline"
)

var seedEmail string

// seedCmd creates a demo user with one campaign, filled from the upload
// template, on the configured backend.
var seedCmd = &cobra.Command{
	Use:   "seed-demo",
	Short: "Create a demo user and campaign",
	RunE: func(cmd *cobra.Command, _ []string) error {
		ctx := cmd.Context()
		st, err := openStores(ctx, cfg, logger)
		if err != nil {
			return err
		}
		defer st.Close()

		u, err := st.users.UpsertUser(ctx, domain.User{ID: "demo-user", Email: seedEmail, Name: "Demo Recruiter", VerifiedEmail: true})
		if err != nil {
			return err
		}

		policy := domain.ParseStagePolicy(cfg.StagePolicy)
		pipe := pipeline.New(st.campaigns, policy, logger.Named("pipeline"))
		svc := campaigns.New(st.campaigns, pipe, logger.Named("campaigns"))

		c, err := svc.Create(ctx, u.ID, domain.CampaignForm{
			Title:          "Senior Backend Engineer",
			Description:    "Own the services behind the recruiting pipeline.",
			Department:     "Engineering",
			Location:       "Remote",
			EmploymentType: "Full-time",
			Skills:         []string{"Go", "PostgreSQL", "Kubernetes"},
			Openings:       2,
		})
		if err != nil {
			return err
		}
		table, err := importer.Parse(strings.NewReader(importer.Template()))
		if err != nil {
			return err
		}
		res, err := svc.ImportCandidates(ctx, c.ID, table, importer.SuggestMapping(table.Headers))
		if err != nil {
			return err
		}
		logger.Info("demo data ready",
			zap.String("user", u.Email),
			zap.String("campaign", c.ID),
			zap.Int("candidates", res.Imported),
		)
		return nil
	},
}

func init() {
	seedCmd.Flags().StringVar(&seedEmail, "email", "demo@hireflow.dev", "email of the demo user")
}
