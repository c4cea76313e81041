// Package sqlite is the SQLite Backend for playstate, built on the pure-Go
// modernc.org/sqlite driver.
//
// The file layout is fixed and shared with existing user data databases:
//
//	userdata(key nvarchar, userId GUID, data BLOB)
//	unique index userdataindex on userdata(key, userId)
//	schema_version(table_name primary key, version)
//
// Every pooled connection runs with temp_store=memory, and write transactions
// are opened with BEGIN IMMEDIATE.
package sqlite
