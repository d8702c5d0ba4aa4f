// Package pg holds pgx glue that does not belong in the store seam itself
package pg
