// Package store provides the SQLite database behind the track store.
//
// The schema has three tables:
//   - tracks: one row per recorded activity
//   - trackpoints: location fixes and sensor samples, FK trackid
//   - markers: user waypoints, FK trackid
//
// Deleting a track cascades to its trackpoints and markers through
// ON DELETE CASCADE foreign keys. Identities use AUTOINCREMENT and are never
// reused.
//
// # Database Configuration
//
//   - WAL mode: Concurrent reads during writes
//   - synchronous=NORMAL: Balance durability/performance
//   - busy_timeout=5000: Wait for locks up to 5 seconds
//   - foreign_keys=ON: Enforce referential integrity
//   - One pooled connection, so total_changes() sees every write
//
// The schema is versioned with golang-migrate. Migrations are embedded from
// the migrations directory and applied by Open.
package store
