// Package testdb provides SurrealDB test database utilities.
//
// Integration tests run only when TEST_DB_HOST is set; otherwise New
// skips the calling test.
//
//	func TestSomething(t *testing.T) {
//	    tdb := testdb.New(t)
//	    defer tdb.Close()
//
//	    repo := repository.NewDonationRepository(tdb.DB)
//	}
//
// # Isolation
//
// Each TestDB gets its own namespace, removed again by Close. The
// embedded SurrealDB migrations are applied on setup.
//
// # Timeout Context
//
//	ctx := tdb.Ctx() // 10 second timeout
package testdb
