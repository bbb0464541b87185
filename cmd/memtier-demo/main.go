package main

import (
	"fmt"
	"os"
	"sync"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"mem_tier"
	"mem_tier/sizeclass"
)

func main() {
	log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stderr})

	alloc := memtier.New()

	var wg sync.WaitGroup
	wg.Add(2)

	small := func() {
		defer wg.Done()
		tc := alloc.NewThreadCache()
		for i := 0; i < 100; i++ {
			addr, ok := memtier.Allocate(tc, 24)
			if !ok {
				log.Error().Int("i", i).Msg("allocate failed")
				return
			}
			memtier.Deallocate(tc, addr, 24)
		}
		tc.Flush()
	}
	large := func() {
		defer wg.Done()
		tc := alloc.NewThreadCache()
		held := make([]uintptr, 0, 100)
		for i := 0; i < 100; i++ {
			addr, ok := memtier.Allocate(tc, 4096)
			if !ok {
				log.Error().Int("i", i).Msg("allocate failed")
				return
			}
			held = append(held, addr)
		}
		for _, addr := range held {
			memtier.Deallocate(tc, addr, 4096)
		}
		tc.Flush()
	}
	go small()
	go large()
	wg.Wait()

	smallIndex := sizeclass.ClassIndex(24)
	largeIndex := sizeclass.ClassIndex(4096)
	fmt.Printf("class %d stats: %+v\n", smallIndex, alloc.Central().Stats(smallIndex))
	fmt.Printf("class %d stats: %+v\n", largeIndex, alloc.Central().Stats(largeIndex))
	fmt.Printf("live spans registered: %d\n", alloc.Central().SpanTable().Len())
}
