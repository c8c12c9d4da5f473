// Package resilience groups the fault tolerance helpers used for outbound calls:
// circuit breakers around the platform APIs and the database, and retry with
// exponential backoff and jitter.
//
//	cb := circuitbreaker.New(circuitbreaker.GitHubAPIConfig())
//	err := retry.WithBackoff(ctx, retry.PlatformAPIConfig("github"), func() error {
//	    _, err := cb.Execute(func() (interface{}, error) {
//	        return nil, doRequest(ctx)
//	    })
//	    return err
//	})
package resilience
