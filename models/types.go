// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

package models

import "time"

// User roles
const (
	RoleGuest     = "guest"
	RoleApplicant = "applicant"
	RoleCommittee = "committee"
	RoleAdmin     = "admin"
)

// Geographic areas. Cross-Area applications are visible under every
// area filter.
const (
	AreaBlaenavon = "Blaenavon"
	AreaThornhill = "Thornhill & Upper Cwmbran"
	AreaTrevethin = "Trevethin, Penygarn & St. Cadocs"
	AreaCross     = "Cross-Area"
)

// Areas lists the three geographic areas applicants choose from.
// Cross-Area is a designator, not a committee home area.
var Areas = []string{AreaBlaenavon, AreaThornhill, AreaTrevethin}

// Application workflow states
const (
	StatusDraft           = "Draft"
	StatusSubmittedStage1 = "Submitted-Stage1"
	StatusRejectedStage1  = "Rejected-Stage1"
	StatusInvitedStage2   = "Invited-Stage2"
	StatusSubmittedStage2 = "Submitted-Stage2"
	StatusFinalist        = "Finalist"
	StatusRejected        = "Rejected"
	StatusFunded          = "Funded"
)

// Submission methods
const (
	MethodDigital = "digital"
	MethodUpload  = "upload"
)

// transitions is the legal workflow graph. Updates that change status
// must follow an edge here; anything else is rejected by the store.
var transitions = map[string][]string{
	StatusDraft:           {StatusSubmittedStage1},
	StatusSubmittedStage1: {StatusRejectedStage1, StatusInvitedStage2},
	StatusInvitedStage2:   {StatusSubmittedStage2},
	StatusSubmittedStage2: {StatusFinalist, StatusRejected},
	StatusFinalist:        {StatusFunded, StatusRejected},
}

// CanTransition reports whether moving an application from one status
// to another follows the workflow graph. A no-op (same status) is
// always allowed.
func CanTransition(from, to string) bool {
	if from == to {
		return true
	}
	for _, next := range transitions[from] {
		if next == to {
			return true
		}
	}
	return false
}

// ValidStatus reports whether s is a known workflow state.
func ValidStatus(s string) bool {
	switch s {
	case StatusDraft, StatusSubmittedStage1, StatusRejectedStage1,
		StatusInvitedStage2, StatusSubmittedStage2,
		StatusFinalist, StatusRejected, StatusFunded:
		return true
	}
	return false
}

// Domain types

type User struct {
	ID          string `json:"id"`
	Email       string `json:"email"`
	Username    string `json:"username,omitempty"`
	Role        string `json:"role"`
	Area        string `json:"area,omitempty"` // committee assignment
	DisplayName string `json:"display_name,omitempty"`
	Bio         string `json:"bio,omitempty"`
	Phone       string `json:"phone,omitempty"`
	PhotoURL    string `json:"photo_url,omitempty"`
	Address     string `json:"address,omitempty"`
	RoleDesc    string `json:"role_description,omitempty"`

	// Secret is declared so the record shape matches what the backends
	// store, but every read path must return it empty. The real
	// credential lives only in the backend's credential table.
	Secret string `json:"secret,omitempty"`
}

// Public returns the projection of u that may cross the service
// boundary. Every store read path returns users through this.
func (u User) Public() User {
	u.Secret = ""
	return u
}

// BudgetLine is one row of a Stage 2 budget breakdown.
type BudgetLine struct {
	Item string  `json:"item"`
	Note string  `json:"note"`
	Cost float64 `json:"cost"`
}

// FormData is the structured payload of a digital-mode submission.
// Stage 1 fields are filled at EOI time; Stage 2 fields when the
// full application is completed.
type FormData struct {
	// Stage 1 (EOI)
	MultiArea        bool     `json:"multi_area,omitempty"`
	OrgType          string   `json:"org_type,omitempty"`
	OrgTypeOther     string   `json:"org_type_other,omitempty"`
	ContactPosition  string   `json:"contact_position,omitempty"`
	ContactEmail     string   `json:"contact_email,omitempty"`
	ContactPhone     string   `json:"contact_phone,omitempty"`
	AddressStreet    string   `json:"address_street,omitempty"`
	AddressTown      string   `json:"address_town,omitempty"`
	AddressCounty    string   `json:"address_county,omitempty"`
	AddressPostcode  string   `json:"address_postcode,omitempty"`
	StartDate        string   `json:"start_date,omitempty"`
	EndDate          string   `json:"end_date,omitempty"`
	Duration         string   `json:"duration,omitempty"`
	PositiveOutcomes []string `json:"positive_outcomes,omitempty"`
	OtherFunding     string   `json:"other_funding_source,omitempty"`
	CrossAreaSplit   string   `json:"cross_area_breakdown,omitempty"`
	MarmotPrinciples []string `json:"marmot_principles,omitempty"`
	WFGGoals         []string `json:"wfg_goals,omitempty"`
	DeclarationName  string   `json:"declaration_name,omitempty"`
	DeclarationDate  string   `json:"declaration_date,omitempty"`

	// Stage 2 (Full Application)
	BankAccountName   string            `json:"bank_account_name,omitempty"`
	BankAccountNumber string            `json:"bank_account_number,omitempty"`
	BankSortCode      string            `json:"bank_sort_code,omitempty"`
	CharityNumber     string            `json:"charity_number,omitempty"`
	CompanyNumber     string            `json:"company_number,omitempty"`
	Activities        string            `json:"activities,omitempty"`
	CommunityBenefit  string            `json:"community_benefit,omitempty"`
	Collaborations    string            `json:"collaborations,omitempty"`
	Risks             string            `json:"risks,omitempty"`
	MarmotExplain     map[string]string `json:"marmot_explanations,omitempty"`
	WFGExplain        map[string]string `json:"wfg_explanations,omitempty"`
	BudgetBreakdown   []BudgetLine      `json:"budget_breakdown,omitempty"`
	BudgetNotes       string            `json:"additional_budget_info,omitempty"`
	Checklist         []string          `json:"checklist,omitempty"`
	Declarations      []string          `json:"declaration_statements,omitempty"`
}

type Application struct {
	ID               string    `json:"id"`
	UserID           string    `json:"user_id"`
	ApplicantName    string    `json:"applicant_name"`
	OrgName          string    `json:"org_name"`
	ProjectTitle     string    `json:"project_title"`
	Area             string    `json:"area"`
	Summary          string    `json:"summary"`
	AmountRequested  float64   `json:"amount_requested"`
	TotalCost        float64   `json:"total_cost"`
	Status           string    `json:"status"`
	Priority         string    `json:"priority,omitempty"`
	CreatedAt        time.Time `json:"created_at"`
	Ref              string    `json:"ref"` // e.g. PB-BLA-123, fixed at creation
	SubmissionMethod string    `json:"submission_method"`
	PDFURL           string    `json:"pdf_url,omitempty"`        // Stage 1 EOI upload
	Stage2PDFURL     string    `json:"stage2_pdf_url,omitempty"` // Stage 2 upload
	FormData         *FormData `json:"form_data,omitempty"`      // digital mode
}

// Score is one committee member's evaluation of one application.
// (AppID, ScorerID) is the natural key; saving again overwrites.
type Score struct {
	AppID      string            `json:"app_id"`
	ScorerID   string            `json:"scorer_id"`
	ScorerName string            `json:"scorer_name"`
	Ratings    map[string]int    `json:"scores"` // criterion id -> 0..3
	Notes      map[string]string `json:"notes,omitempty"`
	IsFinal    bool              `json:"is_final"`
	Total      float64           `json:"total"` // derived, recomputed on save
	Timestamp  time.Time         `json:"timestamp"`
}

// PortalSettings is the process-wide singleton controlling which
// phases of the portal are live.
type PortalSettings struct {
	Stage1Visible bool `json:"stage1_visible"`
	Stage2Visible bool `json:"stage2_visible"`
	VotingOpen    bool `json:"voting_open"`
}

// DefaultSettings is what GetPortalSettings creates on first access
// and falls back to when the backend read fails.
func DefaultSettings() PortalSettings {
	return PortalSettings{Stage1Visible: true}
}

// Patch types for partial updates. Nil pointer means "leave unchanged".

type UserPatch struct {
	Username    *string `json:"username,omitempty"`
	Role        *string `json:"role,omitempty"`
	Area        *string `json:"area,omitempty"`
	DisplayName *string `json:"display_name,omitempty"`
	Bio         *string `json:"bio,omitempty"`
	Phone       *string `json:"phone,omitempty"`
	PhotoURL    *string `json:"photo_url,omitempty"`
	Address     *string `json:"address,omitempty"`
	RoleDesc    *string `json:"role_description,omitempty"`
}

// Apply copies the set fields of p onto u.
func (p UserPatch) Apply(u *User) {
	if p.Username != nil {
		u.Username = *p.Username
	}
	if p.Role != nil {
		u.Role = *p.Role
	}
	if p.Area != nil {
		u.Area = *p.Area
	}
	if p.DisplayName != nil {
		u.DisplayName = *p.DisplayName
	}
	if p.Bio != nil {
		u.Bio = *p.Bio
	}
	if p.Phone != nil {
		u.Phone = *p.Phone
	}
	if p.PhotoURL != nil {
		u.PhotoURL = *p.PhotoURL
	}
	if p.Address != nil {
		u.Address = *p.Address
	}
	if p.RoleDesc != nil {
		u.RoleDesc = *p.RoleDesc
	}
}

type ApplicationPatch struct {
	ApplicantName    *string   `json:"applicant_name,omitempty"`
	OrgName          *string   `json:"org_name,omitempty"`
	ProjectTitle     *string   `json:"project_title,omitempty"`
	Area             *string   `json:"area,omitempty"`
	Summary          *string   `json:"summary,omitempty"`
	AmountRequested  *float64  `json:"amount_requested,omitempty"`
	TotalCost        *float64  `json:"total_cost,omitempty"`
	Status           *string   `json:"status,omitempty"`
	Priority         *string   `json:"priority,omitempty"`
	SubmissionMethod *string   `json:"submission_method,omitempty"`
	PDFURL           *string   `json:"pdf_url,omitempty"`
	Stage2PDFURL     *string   `json:"stage2_pdf_url,omitempty"`
	FormData         *FormData `json:"form_data,omitempty"`

	// ForceStatus bypasses workflow-graph validation. Set only by the
	// admin repair path, never decoded from a request body.
	ForceStatus bool `json:"-"`
}

// Apply copies the set fields of p onto a. Status is applied here
// without validation; the store validates the transition first.
func (p ApplicationPatch) Apply(a *Application) {
	if p.ApplicantName != nil {
		a.ApplicantName = *p.ApplicantName
	}
	if p.OrgName != nil {
		a.OrgName = *p.OrgName
	}
	if p.ProjectTitle != nil {
		a.ProjectTitle = *p.ProjectTitle
	}
	if p.Area != nil {
		a.Area = *p.Area
	}
	if p.Summary != nil {
		a.Summary = *p.Summary
	}
	if p.AmountRequested != nil {
		a.AmountRequested = *p.AmountRequested
	}
	if p.TotalCost != nil {
		a.TotalCost = *p.TotalCost
	}
	if p.Status != nil {
		a.Status = *p.Status
	}
	if p.Priority != nil {
		a.Priority = *p.Priority
	}
	if p.SubmissionMethod != nil {
		a.SubmissionMethod = *p.SubmissionMethod
	}
	if p.PDFURL != nil {
		a.PDFURL = *p.PDFURL
	}
	if p.Stage2PDFURL != nil {
		a.Stage2PDFURL = *p.Stage2PDFURL
	}
	if p.FormData != nil {
		a.FormData = p.FormData
	}
}

// Request types

type RegisterRequest struct {
	Email       string `json:"email"`
	Password    string `json:"password"`
	DisplayName string `json:"display_name"`
}

type LoginRequest struct {
	Identifier string `json:"identifier"` // email or bare committee username
	Password   string `json:"password"`
}

type CreateApplicationRequest struct {
	ApplicantName    string    `json:"applicant_name"`
	OrgName          string    `json:"org_name"`
	ProjectTitle     string    `json:"project_title"`
	Area             string    `json:"area"`
	Summary          string    `json:"summary"`
	AmountRequested  float64   `json:"amount_requested"`
	TotalCost        float64   `json:"total_cost"`
	SubmissionMethod string    `json:"submission_method"`
	PDFURL           string    `json:"pdf_url,omitempty"`
	FormData         *FormData `json:"form_data,omitempty"`
}

type SaveScoreRequest struct {
	AppID   string            `json:"app_id"`
	Ratings map[string]int    `json:"scores"`
	Notes   map[string]string `json:"notes,omitempty"`
	IsFinal bool              `json:"is_final"`
}

type ResetScoresRequest struct {
	ScorerID string `json:"scorer_id"`
	AppID    string `json:"app_id,omitempty"` // empty = all of the scorer's scores
}

type AdminCreateUserRequest struct {
	Email       string `json:"email"`
	Password    string `json:"password"`
	DisplayName string `json:"display_name"`
	Role        string `json:"role"`
	Area        string `json:"area,omitempty"`
}

// Response types

// ScorerResult is one committee member's line in an application's
// results breakdown.
type ScorerResult struct {
	ScorerID   string  `json:"scorer_id"`
	ScorerName string  `json:"scorer_name"`
	Total      float64 `json:"total"`
	IsFinal    bool    `json:"is_final"`
}

// AppResult is the aggregated scoring view of one application.
type AppResult struct {
	AppID           string         `json:"app_id"`
	Ref             string         `json:"ref"`
	ProjectTitle    string         `json:"project_title"`
	Area            string         `json:"area"`
	Status          string         `json:"status"`
	AmountRequested float64        `json:"amount_requested"`
	Average         float64        `json:"average"`
	Band            string         `json:"band"`
	ScorerCount     int            `json:"scorer_count"`
	Scorers         []ScorerResult `json:"scorers"`
}

// ResultsResponse is the full results table plus the threshold the
// bands were computed against.
type ResultsResponse struct {
	Threshold int         `json:"threshold"`
	Results   []AppResult `json:"results"`
}

type SessionResponse struct {
	User User `json:"user"`
}

type ErrorResponse struct {
	Error   string `json:"error"`
	Message string `json:"message,omitempty"`
}
