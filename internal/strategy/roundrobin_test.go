package strategy_test

import (
	"sync"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/angeloszaimis/edge-router/internal/backend"
	"github.com/angeloszaimis/edge-router/internal/strategy"
)

var _ = Describe("Roundrobin", func() {
	var (
		strat    strategy.Strategy
		backends []*backend.Backend
	)

	BeforeEach(func() {
		strat = strategy.NewRoundRobinStrategy()

		backends = []*backend.Backend{
			backend.New("127.0.0.1:8081"),
			backend.New("127.0.0.1:8082"),
			backend.New("127.0.0.1:8083"),
		}
	})

	Describe("SelectBackend", func() {
		It("should cycle through backends in order", func() {
			Expect(strat.SelectBackend(backends)).To(Equal(backends[0]))
			Expect(strat.SelectBackend(backends)).To(Equal(backends[1]))
			Expect(strat.SelectBackend(backends)).To(Equal(backends[2]))
			Expect(strat.SelectBackend(backends)).To(Equal(backends[0]))
		})

		It("should distribute load evenly", func() {
			counts := make(map[string]int)
			for i := 0; i < 300; i++ {
				selected := strat.SelectBackend(backends)
				counts[selected.Address()]++
			}
			Expect(counts["127.0.0.1:8081"]).To(Equal(100))
			Expect(counts["127.0.0.1:8082"]).To(Equal(100))
			Expect(counts["127.0.0.1:8083"]).To(Equal(100))
		})

		It("should not lose increments under contention", func() {
			var (
				wg     sync.WaitGroup
				mu     sync.Mutex
				counts = make(map[string]int)
			)
			for i := 0; i < 30; i++ {
				wg.Add(1)
				go func() {
					defer wg.Done()
					for j := 0; j < 100; j++ {
						selected := strat.SelectBackend(backends)
						mu.Lock()
						counts[selected.Address()]++
						mu.Unlock()
					}
				}()
			}
			wg.Wait()

			Expect(counts["127.0.0.1:8081"] + counts["127.0.0.1:8082"] + counts["127.0.0.1:8083"]).To(Equal(3000))
			Expect(counts["127.0.0.1:8081"]).To(Equal(1000))
		})

		Context("with empty backend list", func() {
			It("should return nil", func() {
				Expect(strat.SelectBackend([]*backend.Backend{})).To(BeNil())
			})
		})
	})
})

var _ = Describe("Random", func() {
	var (
		strat    strategy.Strategy
		backends []*backend.Backend
	)

	BeforeEach(func() {
		strat = strategy.NewRandomStrategy()
		backends = []*backend.Backend{
			backend.New("127.0.0.1:8081"),
			backend.New("127.0.0.1:8082"),
			backend.New("127.0.0.1:8083"),
		}
	})

	It("should select a backend", func() {
		selected := strat.SelectBackend(backends)
		Expect(selected).NotTo(BeNil())
		Expect(backends).To(ContainElement(selected))
	})

	It("should distribute across backends over multiple calls", func() {
		backendSet := make(map[*backend.Backend]bool)

		for i := 0; i < 100; i++ {
			selected := strat.SelectBackend(backends)
			backendSet[selected] = true
		}

		Expect(len(backendSet)).To(BeNumerically(">=", 2))
	})

	It("should return nil for empty backend list", func() {
		selected := strat.SelectBackend([]*backend.Backend{})
		Expect(selected).To(BeNil())
	})
})
