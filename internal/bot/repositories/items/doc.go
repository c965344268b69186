// Package items stores the catalog items the bot has discovered and
// whether they have been processed.
//
// Two backends implement Repository: JSONRepository keeps the whole catalog
// in memory and writes it to a single JSON file on Save, SQLiteRepository
// writes through to a SQLite database migrated with goose.
package items
