package service

import (
	"context"
	"encoding/json"
	"strings"

	"kidshield/internal/metrics"
	"kidshield/internal/models"
	"kidshield/internal/repository"
	"kidshield/internal/validation"
)

// UpsertRuleInput is the body of POST /rules
type UpsertRuleInput struct {
	Platform     string          `json:"platform" validate:"required,max=64"`
	DailyMinutes int             `json:"daily_minutes" validate:"gt=0,lte=1440"`
	Bedtime      string          `json:"bedtime" validate:"required,max=16"`
	Whitelist    json.RawMessage `json:"whitelist"`
}

// RuleService manages per-platform rules and the policy projection
type RuleService struct {
	rules *repository.RuleRepository
}

// NewRuleService creates a new rule service
func NewRuleService(rules *repository.RuleRepository) *RuleService {
	return &RuleService{rules: rules}
}

// NormalizePlatform trims and lowercases a platform name
func NormalizePlatform(platform string) string {
	return strings.ToLower(strings.TrimSpace(platform))
}

// List returns every rule of the family
func (s *RuleService) List(ctx context.Context, familyID string) ([]models.Rule, error) {
	return s.rules.ListRules(ctx, familyID)
}

// Upsert creates or replaces the family's rule for a platform
func (s *RuleService) Upsert(ctx context.Context, familyID string, in UpsertRuleInput) (*models.Rule, error) {
	in.Platform = NormalizePlatform(in.Platform)
	in.Bedtime = strings.TrimSpace(in.Bedtime)
	if err := validation.Struct(in); err != nil {
		return nil, err
	}

	whitelist, err := models.NormalizeWhitelist(in.Whitelist)
	if err != nil {
		return nil, &validation.Error{Field: "whitelist", Message: err.Error()}
	}

	rule, err := s.rules.UpsertRule(ctx, familyID, in.Platform, in.DailyMinutes, in.Bedtime, whitelist)
	if err != nil {
		return nil, err
	}
	metrics.RuleUpserts.WithLabelValues(metrics.PlatformLabel(rule.Platform)).Inc()
	return rule, nil
}

// Policy returns the enforcement view for a platform. An empty platform means
// youtube; a platform without a rule gets the default policy.
func (s *RuleService) Policy(ctx context.Context, familyID, platform string) (models.Policy, error) {
	platform = NormalizePlatform(platform)
	if platform == "" {
		platform = models.DefaultPolicyPlatform
	}

	rule, err := s.rules.GetRule(ctx, familyID, platform)
	if err != nil {
		return models.Policy{}, err
	}
	if rule == nil {
		metrics.PolicyLookups.WithLabelValues("default").Inc()
		return models.DefaultPolicy(), nil
	}
	metrics.PolicyLookups.WithLabelValues("rule").Inc()
	return rule.Policy(), nil
}
