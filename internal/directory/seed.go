package directory

import (
	"github.com/shopspring/decimal"

	"github.com/JonMunkholm/billing/internal/billing"
)

// Default returns the built-in directory used when no file is configured.
func Default() *Directory {
	d, err := New(defaultUsers(), defaultProjects())
	if err != nil {
		panic("directory: invalid built-in data: " + err.Error())
	}
	return d
}

func defaultUsers() []billing.User {
	return []billing.User{
		{ID: "1", Username: "admin", FirstName: "Admin", LastName: "User", Email: "admin@example.com", Role: "admin"},
		{ID: "2", Username: "employee1", FirstName: "John", LastName: "Doe", Email: "employee1@example.com", Role: "employee"},
		{ID: "3", Username: "employee2", FirstName: "Jane", LastName: "Smith", Email: "employee2@example.com", Role: "employee"},
	}
}

func defaultProjects() []billing.Project {
	return []billing.Project{
		{ID: "proj1", Name: "Website Redesign", BillingType: billing.BillingHourly, RatePerHour: decimal.NewFromInt(75)},
		{ID: "proj2", Name: "Mobile App Development", BillingType: billing.BillingHourly, RatePerHour: decimal.NewFromInt(90)},
		{
			ID: "proj3", Name: "Data Entry Batch A", BillingType: billing.BillingCountBased,
			CountMetricLabel: "Records Processed", CountDivisor: decimal.NewFromInt(1), CountMultiplier: decimal.RequireFromString("0.5"),
		},
		{
			ID: "proj4", Name: "Content Moderation X", BillingType: billing.BillingCountBased,
			CountMetricLabel: "Items Reviewed", CountDivisor: decimal.NewFromInt(100), CountMultiplier: decimal.NewFromInt(5),
		},
	}
}
