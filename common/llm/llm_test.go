package llm_test

import (
	"context"
	"errors"
	"fmt"

	"brewcast.app/captioner/common/llm"
	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
)

var _ = Describe("IsRetryable", func() {
	ctx := context.Background()

	It("treats nil as not retryable", func() {
		Expect(llm.IsRetryable(ctx, nil)).To(BeFalse())
	})

	It("never retries context cancellation", func() {
		Expect(llm.IsRetryable(ctx, context.Canceled)).To(BeFalse())
		Expect(llm.IsRetryable(ctx, fmt.Errorf("complete: %w", context.DeadlineExceeded))).To(BeFalse())
	})

	DescribeTable("classifies raw HTTP status codes",
		func(status int, want bool) {
			err := fmt.Errorf("gemini generate: %w", &llm.HTTPError{StatusCode: status})
			Expect(llm.IsRetryable(ctx, err)).To(Equal(want))
		},
		Entry("rate limited", 429, true),
		Entry("server error", 500, true),
		Entry("bad gateway", 502, true),
		Entry("bad request", 400, false),
		Entry("unauthorized", 401, false),
		Entry("not found", 404, false),
	)

	It("retries plain network errors", func() {
		Expect(llm.IsRetryable(ctx, errors.New("connection refused"))).To(BeTrue())
	})
})

var _ = Describe("EstimateCost", func() {
	It("scales linearly with total tokens", func() {
		Expect(llm.EstimateCost(2.0, 500_000, 500_000)).To(BeNumerically("~", 2.0, 1e-9))
		Expect(llm.EstimateCost(2.0, 250_000, 0)).To(BeNumerically("~", 0.5, 1e-9))
	})

	It("costs nothing for local providers", func() {
		Expect(llm.EstimateCost(0, 1_000_000, 1_000_000)).To(BeZero())
	})
})

var _ = Describe("Temp", func() {
	It("returns a pointer to the given value", func() {
		t := llm.Temp(0.8)
		Expect(t).NotTo(BeNil())
		Expect(*t).To(Equal(0.8))
	})
})
