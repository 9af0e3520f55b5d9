package authz_test

import (
	"testing"

	"crm-service/internal/authz"
	"crm-service/internal/domain/apikey"
	"crm-service/internal/rbac/presets"
)

// BenchmarkExpectedOutcome measures a single flat-permission decision
func BenchmarkExpectedOutcome(b *testing.B) {
	engine := newEngine()
	key := &apikey.APIKey{Active: true, Permissions: []apikey.Permission{apikey.PermissionRead, apikey.PermissionWrite}}
	sc := scenarioFor(presets.ResourceDeals, apikey.PermissionWrite)

	b.ResetTimer()
	b.ReportAllocs()

	for i := 0; i < b.N; i++ {
		_ = engine.ExpectedOutcome(key, sc)
	}
}

// BenchmarkExpectedOutcomeCatalogueParallel evaluates the full scenario catalogue concurrently
func BenchmarkExpectedOutcomeCatalogueParallel(b *testing.B) {
	engine := newEngine()
	key := &apikey.APIKey{Active: true, ResourcePermissions: []apikey.ResourcePermission{
		{Resource: presets.ResourceContacts, Actions: []apikey.Permission{apikey.PermissionRead}},
		{Resource: presets.ResourceDeals, Actions: []apikey.Permission{apikey.PermissionRead, apikey.PermissionWrite}},
	}}
	scenarios := authz.Scenarios()

	b.ResetTimer()
	b.ReportAllocs()

	b.RunParallel(func(pb *testing.PB) {
		for pb.Next() {
			for _, sc := range scenarios {
				_ = engine.ExpectedOutcome(key, sc)
			}
		}
	})
}
