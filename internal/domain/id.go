package domain

import "github.com/google/uuid"

func newRecordID() string { return uuid.NewString() }
