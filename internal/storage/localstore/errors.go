package localstore

import "errors"

var ErrSlotNotFound = errors.New("slot not found")
