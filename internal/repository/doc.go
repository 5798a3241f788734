// Package repository implements the donation store behind the engine.
//
// DonationStore runs a function as one atomic unit of work over a
// DonationTx. Three implementations share the contract:
//
//   - MemoryDonationRepository keeps records in maps, takes per-key locks
//     on first load and applies staged writes on commit
//   - DonationRepository reads from SurrealDB and commits every write in a
//     single BEGIN/COMMIT batch guarded by record versions
//   - PostgresDonationRepository locks donor and location rows with
//     SELECT ... FOR UPDATE inside a database/sql transaction
//
// # Conventions
//
//   - Load methods return (nil, nil) for absent records
//   - Reads inside a unit observe the unit's own staged writes
//   - Lost races surface as database.ErrConflict; transport failures as
//     database.ErrConnection or database.ErrQuery
//
// # Example Usage
//
//	store := NewMemoryDonationRepository()
//	err := store.WithinTx(ctx, func(tx DonationTx) error {
//	    user, err := tx.LoadUser(id)
//	    if err != nil || user == nil {
//	        return err
//	    }
//	    user.TotalPoints += 10
//	    return tx.SaveUser(user)
//	})
package repository
