package repository

import "errors"

// Package repository contains data access layer abstractions.
// Implementations can live in subpackages (e.g., postgres) inside this directory.

// ErrDuplicate is returned by Create when a row violates a uniqueness
// constraint, such as an artifact name/version pair that is already taken.
var ErrDuplicate = errors.New("duplicate record")
