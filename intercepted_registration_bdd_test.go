package interception_test

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"testing"

	"github.com/cucumber/godog"

	"github.com/GoCodeAlone/interception"
	"github.com/GoCodeAlone/interception/di"
	"github.com/GoCodeAlone/interception/internal/testutil"
	"github.com/GoCodeAlone/interception/proxy"
)

// registrationBDDTestContext holds the state of one scenario.
type registrationBDDTestContext struct {
	services     *di.ServiceCollection
	provider     *di.Provider
	capture      *testutil.CapturingInterceptor
	named        map[string]*testutil.CapturingInterceptor
	instances    map[string]*testutil.TestService
	resolved     []testutil.ITestService
	returnedName string
	lastError    error
}

func (c *registrationBDDTestContext) reset() {
	if c.provider != nil {
		_ = c.provider.Close()
	}
	*c = registrationBDDTestContext{
		capture:   &testutil.CapturingInterceptor{},
		named:     make(map[string]*testutil.CapturingInterceptor),
		instances: make(map[string]*testutil.TestService),
	}
}

func (c *registrationBDDTestContext) anEmptyServiceCollection() error {
	c.services = di.NewServiceCollection()
	return nil
}

func (c *registrationBDDTestContext) registerKeyed(key, lifetime string) error {
	parsed, err := di.ParseServiceLifetime(lifetime)
	if err != nil {
		return err
	}
	_, err = interception.AddKeyedInterceptedFactory(c.services, serviceType, key, newKeyedTestService, parsed, c.capture)
	return err
}

func (c *registrationBDDTestContext) registerFixed(key, lifetime string, interceptors ...proxy.Interceptor) error {
	parsed, err := di.ParseServiceLifetime(lifetime)
	if err != nil {
		return err
	}
	instance := testutil.NewTestService()
	c.instances[key] = instance
	_, err = interception.AddKeyedInterceptedFactory(c.services, serviceType, key,
		func(di.ServiceResolver, any) (any, error) { return instance, nil }, parsed, interceptors...)
	return err
}

func (c *registrationBDDTestContext) registerFixedWithoutInterceptors(key, lifetime string) error {
	return c.registerFixed(key, lifetime)
}

func (c *registrationBDDTestContext) registerFixedWithCapture(key, lifetime string) error {
	return c.registerFixed(key, lifetime, &testutil.CapturingInterceptor{})
}

func (c *registrationBDDTestContext) tryRegisterWithNamedInterceptor(key, lifetime, name string) error {
	parsed, err := di.ParseServiceLifetime(lifetime)
	if err != nil {
		return err
	}
	interceptor := &testutil.CapturingInterceptor{}
	c.named[name] = interceptor
	_, err = interception.TryAddKeyedInterceptedFactory(c.services, serviceType, key, newKeyedTestService, parsed, interceptor)
	return err
}

func (c *registrationBDDTestContext) registerNilKey(lifetime string) error {
	parsed, err := di.ParseServiceLifetime(lifetime)
	if err != nil {
		return err
	}
	_, err = interception.AddKeyedInterceptedFactory(c.services, serviceType, nil, newKeyedTestService, parsed, c.capture)
	return err
}

func (c *registrationBDDTestContext) registerNilFactory() error {
	_, c.lastError = interception.AddInterceptedFactory(c.services, serviceType, nil, di.Transient, c.capture)
	return nil
}

func (c *registrationBDDTestContext) ensureProvider() error {
	if c.provider != nil {
		return nil
	}
	provider, err := c.services.Build()
	if err != nil {
		return err
	}
	c.provider = provider
	return nil
}

func (c *registrationBDDTestContext) resolve(key string) error {
	if err := c.ensureProvider(); err != nil {
		return err
	}
	svc, err := di.ResolveKeyed[testutil.ITestService](c.provider, key)
	if err != nil {
		return err
	}
	c.resolved = append(c.resolved, svc)
	return nil
}

func (c *registrationBDDTestContext) resolveTwice(key string) error {
	if err := c.resolve(key); err != nil {
		return err
	}
	return c.resolve(key)
}

func (c *registrationBDDTestContext) resolveAndCallGetName(key string) error {
	if err := c.resolve(key); err != nil {
		return err
	}
	c.returnedName = c.resolved[len(c.resolved)-1].GetName()
	return nil
}

func (c *registrationBDDTestContext) theInterceptorShouldHaveCaptured(method string) error {
	if !c.capture.Invoked() {
		return errors.New("interceptor was not invoked")
	}
	if got := c.capture.MethodName(); got != method {
		return fmt.Errorf("expected captured method %q, got %q", method, got)
	}
	return nil
}

func (c *registrationBDDTestContext) theReturnedNameShouldBe(name string) error {
	if c.returnedName != name {
		return fmt.Errorf("expected name %q, got %q", name, c.returnedName)
	}
	return nil
}

func (c *registrationBDDTestContext) theResolvedServiceShouldBeTheRegisteredInstance() error {
	if len(c.resolved) == 0 {
		return errors.New("nothing resolved")
	}
	got, ok := c.resolved[len(c.resolved)-1].(*testutil.TestService)
	if !ok {
		return fmt.Errorf("expected the raw instance, got %T", c.resolved[len(c.resolved)-1])
	}
	for _, instance := range c.instances {
		if instance == got {
			return nil
		}
	}
	return errors.New("resolved instance is not the registered one")
}

func (c *registrationBDDTestContext) bothResolutionsShouldReturn(sharing string) error {
	if len(c.resolved) != 2 {
		return fmt.Errorf("expected 2 resolutions, got %d", len(c.resolved))
	}
	same := c.resolved[0] == c.resolved[1]
	switch {
	case sharing == "the same" && !same:
		return errors.New("expected the same instance")
	case sharing == "different" && same:
		return errors.New("expected different instances")
	}
	return nil
}

func (c *registrationBDDTestContext) instanceShouldHaveBeenCalled(key string) error {
	if c.instances[key].Calls() == 0 {
		return fmt.Errorf("instance %q was not called", key)
	}
	return nil
}

func (c *registrationBDDTestContext) instanceShouldNotHaveBeenCalled(key string) error {
	if calls := c.instances[key].Calls(); calls != 0 {
		return fmt.Errorf("instance %q was called %d times", key, calls)
	}
	return nil
}

func (c *registrationBDDTestContext) namedInterceptorShouldHaveBeenInvoked(name string) error {
	if !c.named[name].Invoked() {
		return fmt.Errorf("interceptor %q was not invoked", name)
	}
	return nil
}

func (c *registrationBDDTestContext) namedInterceptorShouldNotHaveBeenInvoked(name string) error {
	if c.named[name].Invoked() {
		return fmt.Errorf("interceptor %q was invoked", name)
	}
	return nil
}

func (c *registrationBDDTestContext) collectionShouldContainNilKey() error {
	if !c.services.ContainsKeyed(serviceType, nil) {
		return errors.New("no keyed registration with a nil key")
	}
	return nil
}

func (c *registrationBDDTestContext) collectionShouldNotContainUnkeyed() error {
	if c.services.Contains(serviceType) {
		return errors.New("unexpected unkeyed registration")
	}
	return nil
}

func (c *registrationBDDTestContext) registrationShouldFailNaming(argument string) error {
	if !errors.Is(c.lastError, interception.ErrArgumentNil) {
		return fmt.Errorf("expected ErrArgumentNil, got %v", c.lastError)
	}
	if !strings.HasSuffix(c.lastError.Error(), ": "+argument) {
		return fmt.Errorf("error %q does not name %q", c.lastError, argument)
	}
	return nil
}

func (c *registrationBDDTestContext) collectionShouldBeEmpty() error {
	if n := c.services.Len(); n != 0 {
		return fmt.Errorf("expected empty collection, got %d descriptors", n)
	}
	return nil
}

// InitializeRegistrationScenario wires the intercepted registration steps.
func InitializeRegistrationScenario(ctx *godog.ScenarioContext) {
	testCtx := &registrationBDDTestContext{}

	ctx.Before(func(ctx context.Context, sc *godog.Scenario) (context.Context, error) {
		testCtx.reset()
		return ctx, nil
	})

	ctx.Step(`^an empty service collection$`, testCtx.anEmptyServiceCollection)

	// Registration
	ctx.Step(`^I register ITestService with key "([^"]*)" as (\w+) with a capturing interceptor$`, testCtx.registerKeyed)
	ctx.Step(`^I register a fixed ITestService instance with key "([^"]*)" as (\w+) without interceptors$`, testCtx.registerFixedWithoutInterceptors)
	ctx.Step(`^I register a fixed ITestService instance with key "([^"]*)" as (\w+) with a capturing interceptor$`, testCtx.registerFixedWithCapture)
	ctx.Step(`^I try to register ITestService with key "([^"]*)" as (\w+) with interceptor "([^"]*)"$`, testCtx.tryRegisterWithNamedInterceptor)
	ctx.Step(`^I register ITestService with a nil key as (\w+) with a capturing interceptor$`, testCtx.registerNilKey)
	ctx.Step(`^I register ITestService with a nil factory$`, testCtx.registerNilFactory)

	// Resolution
	ctx.Step(`^I resolve ITestService with key "([^"]*)"$`, testCtx.resolve)
	ctx.Step(`^I resolve ITestService with key "([^"]*)" twice$`, testCtx.resolveTwice)
	ctx.Step(`^I resolve ITestService with key "([^"]*)" and call GetName$`, testCtx.resolveAndCallGetName)

	// Assertions
	ctx.Step(`^the interceptor should have captured "([^"]*)"$`, testCtx.theInterceptorShouldHaveCaptured)
	ctx.Step(`^the returned name should be "([^"]*)"$`, testCtx.theReturnedNameShouldBe)
	ctx.Step(`^the resolved service should be the registered instance$`, testCtx.theResolvedServiceShouldBeTheRegisteredInstance)
	ctx.Step(`^both resolutions should return (the same|different) instances$`, testCtx.bothResolutionsShouldReturn)
	ctx.Step(`^the instance registered under "([^"]*)" should have been called$`, testCtx.instanceShouldHaveBeenCalled)
	ctx.Step(`^the instance registered under "([^"]*)" should not have been called$`, testCtx.instanceShouldNotHaveBeenCalled)
	ctx.Step(`^interceptor "([^"]*)" should have been invoked$`, testCtx.namedInterceptorShouldHaveBeenInvoked)
	ctx.Step(`^interceptor "([^"]*)" should not have been invoked$`, testCtx.namedInterceptorShouldNotHaveBeenInvoked)
	ctx.Step(`^the collection should contain a keyed registration with a nil key$`, testCtx.collectionShouldContainNilKey)
	ctx.Step(`^the collection should not contain an unkeyed registration$`, testCtx.collectionShouldNotContainUnkeyed)
	ctx.Step(`^the registration should fail with an argument-nil error naming "([^"]*)"$`, testCtx.registrationShouldFailNaming)
	ctx.Step(`^the collection should be empty$`, testCtx.collectionShouldBeEmpty)
}

// TestInterceptedRegistrationFeatures runs the BDD scenarios for intercepted registration.
func TestInterceptedRegistrationFeatures(t *testing.T) {
	suite := godog.TestSuite{
		ScenarioInitializer: InitializeRegistrationScenario,
		Options: &godog.Options{
			Format:   "pretty",
			Paths:    []string{"features/intercepted_registration.feature"},
			TestingT: t,
			Strict:   true,
		},
	}

	if suite.Run() != 0 {
		t.Fatal("non-zero status returned, failed to run feature tests")
	}
}
