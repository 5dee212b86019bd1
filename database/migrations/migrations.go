// Package migrations registers the schema migrations. Import it for its
// side effects wherever a migration.Runner is built.
package migrations
