package memory

import (
	"testing"

	"github.com/veilrep/repledger/internal/store"
	"github.com/veilrep/repledger/internal/store/storetest"
)

func TestMemoryStoreCompliance(t *testing.T) {
	storetest.Run(t, func(t *testing.T) store.Store { return New() })
}
