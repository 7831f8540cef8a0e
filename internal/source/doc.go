// Package source loads record collections from files and SQLite databases.
//
// Every loader returns a Collection: the records plus the schema that
// describes them. When the caller supplies a schema, declared fields are
// coerced to their types (date strings become dates, 0/1 integers become
// bools for bool fields). Without one, records are decoded as-is and the
// schema is inferred with record.InferSchema.
//
// # Determinism
//
// Files keep their element order. SQLite tables are always read
// ORDER BY rowid, so repeated loads of an unchanged table produce the same
// records in the same order and therefore the same content version.
package source
