// Package shared holds code used across packages that belongs to no single
// domain.
//
// testutil provides the slog capture handler used by package tests and a
// few small dataset fixtures:
//
//	logger, logs := testutil.NewTestLogger(t)
//	path := testutil.WriteFixture(t, "sales.csv", testutil.SalesCSV)
//	...
//	assert.True(t, logs.ContainsMessage("dataset uploaded"))
package shared
