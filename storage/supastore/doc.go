// Package supastore implements the storage ports over Supabase's PostgREST
// API, using the jobs, profiles and interviews tables.
package supastore
