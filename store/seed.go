// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

package store

import "github.com/danielhkuo/pb-portal/models"

// Demonstration data for the local backend. Loaded once into an empty
// store so a fresh checkout is explorable without any registration.

type demoUser struct {
	user     models.User
	password string
}

func demoUsers() []demoUser {
	return []demoUser{
		{
			user: models.User{
				Email:       "admin@committee.local",
				Username:    "admin",
				Role:        models.RoleAdmin,
				DisplayName: "Portal Admin",
				RoleDesc:    "Programme Coordinator",
			},
			password: "admin-demo-pass",
		},
		{
			user: models.User{
				Email:       "blaenavon1@committee.local",
				Username:    "blaenavon1",
				Role:        models.RoleCommittee,
				Area:        models.AreaBlaenavon,
				DisplayName: "Blaenavon Committee 1",
				RoleDesc:    "Chairperson",
			},
			password: "committee-demo-pass",
		},
		{
			user: models.User{
				Email:       "thornhill1@committee.local",
				Username:    "thornhill1",
				Role:        models.RoleCommittee,
				Area:        models.AreaThornhill,
				DisplayName: "Thornhill Committee 1",
				RoleDesc:    "Treasurer",
			},
			password: "committee-demo-pass",
		},
		{
			user: models.User{
				Email:       "trevethin1@committee.local",
				Username:    "trevethin1",
				Role:        models.RoleCommittee,
				Area:        models.AreaTrevethin,
				DisplayName: "Trevethin Committee 1",
				RoleDesc:    "Secretary",
			},
			password: "committee-demo-pass",
		},
		{
			user: models.User{
				Email:       "applicant@example.org",
				Role:        models.RoleApplicant,
				DisplayName: "Demo Applicant",
			},
			password: "applicant-demo-pass",
		},
	}
}

func demoApplications() []models.Application {
	return []models.Application{
		{
			ApplicantName:    "Gwen Harris",
			OrgName:          "Blaenavon Youth Club",
			ProjectTitle:     "After-School Sports Sessions",
			Area:             models.AreaBlaenavon,
			Summary:          "Weekly multi-sport sessions for 8-14 year olds at the community hall.",
			AmountRequested:  4800,
			TotalCost:        5600,
			SubmissionMethod: models.MethodDigital,
			FormData: &models.FormData{
				OrgType:          "Constituted community group",
				ContactEmail:     "gwen@blaenavonyouth.example",
				PositiveOutcomes: []string{"More active young people", "Safer evenings", "New volunteers"},
			},
		},
		{
			ApplicantName:    "Rhys Morgan",
			OrgName:          "Cwmbran Green Spaces",
			ProjectTitle:     "Community Orchard Planting",
			Area:             models.AreaThornhill,
			Summary:          "Plant and maintain a small orchard on the recreation ground.",
			AmountRequested:  2200,
			TotalCost:        2200,
			SubmissionMethod: models.MethodUpload,
			PDFURL:           "https://example.org/docs/orchard-eoi.pdf",
		},
		{
			ApplicantName:    "Siân Evans",
			OrgName:          "Torfaen Food Network",
			ProjectTitle:     "Mobile Pantry Pilot",
			Area:             models.AreaCross,
			Summary:          "A van-based food pantry rotating across all three areas.",
			AmountRequested:  9500,
			TotalCost:        14000,
			SubmissionMethod: models.MethodDigital,
			FormData: &models.FormData{
				MultiArea:      true,
				OrgType:        "Registered charity",
				CrossAreaSplit: "Equal thirds across the three areas.",
			},
		},
	}
}
