package browser

import (
	"errors"
	"testing"

	"github.com/chromedp/cdproto/cdp"
	"github.com/chromedp/cdproto/page"
)

func navigated(frame cdp.FrameID, loader cdp.LoaderID, url string) *page.EventFrameNavigated {
	return &page.EventFrameNavigated{Frame: &cdp.Frame{ID: frame, LoaderID: loader, URL: url}}
}

func lifecycleEvent(frame cdp.FrameID, loader cdp.LoaderID, name string) *page.EventLifecycleEvent {
	return &page.EventLifecycleEvent{FrameID: frame, LoaderID: loader, Name: name}
}

func TestLifecycle_ErrorPageFailsNavigation(t *testing.T) {
	var l lifecycle
	l.observe(navigated("main", "L1", "chrome-error://chromewebdata/"))

	for _, until := range []WaitUntil{WaitCommit, WaitDOMContentLoaded, WaitLoad, WaitNetworkIdle} {
		ok, err := l.reached("L1", until)
		if ok || !errors.Is(err, ErrNavigationFailed) {
			t.Errorf("reached(%s) on error page = %v, %v; want ErrNavigationFailed", until, ok, err)
		}
	}
}

func TestLifecycle_Milestones(t *testing.T) {
	var l lifecycle
	check := func(until WaitUntil, want bool) {
		t.Helper()
		ok, err := l.reached("L1", until)
		if err != nil {
			t.Fatalf("reached(%s): %v", until, err)
		}
		if ok != want {
			t.Errorf("reached(%s) = %v, want %v", until, ok, want)
		}
	}

	if ok, _ := l.reached("L1", WaitCommit); ok {
		t.Fatal("nothing observed yet")
	}

	l.observe(navigated("main", "L1", "https://demoqa.com/text-box"))
	check(WaitCommit, true)
	check(WaitDOMContentLoaded, false)

	l.observe(lifecycleEvent("main", "L1", "DOMContentLoaded"))
	check(WaitDOMContentLoaded, true)
	check(WaitLoad, false)

	l.observe(lifecycleEvent("main", "L1", "load"))
	check(WaitLoad, true)
	if l.isIdle() {
		t.Error("isIdle before networkIdle")
	}

	l.observe(lifecycleEvent("main", "L1", "networkIdle"))
	check(WaitNetworkIdle, true)
	if !l.isIdle() {
		t.Error("isIdle after networkIdle = false")
	}
}

func TestLifecycle_IgnoresOtherDocuments(t *testing.T) {
	var l lifecycle
	l.observe(navigated("main", "L1", "https://demoqa.com/"))

	// Child frames and other loaders never complete the main navigation.
	l.observe(&page.EventFrameNavigated{Frame: &cdp.Frame{ID: "ad", ParentID: "main", LoaderID: "L1", URL: "chrome-error://chromewebdata/"}})
	l.observe(lifecycleEvent("ad", "L1", "load"))
	l.observe(lifecycleEvent("main", "L0", "load"))

	ok, err := l.reached("L1", WaitLoad)
	if err != nil || ok {
		t.Errorf("reached(load) = %v, %v; want false, nil", ok, err)
	}

	l.observe(lifecycleEvent("main", "L1", "load"))
	l.observe(lifecycleEvent("main", "L1", "init"))
	if ok, _ := l.reached("L1", WaitLoad); ok {
		t.Error("init should clear earlier milestones")
	}

	l.observe(lifecycleEvent("main", "L1", "networkIdle"))
	l.observe(navigated("main", "L2", "https://demoqa.com/buttons"))
	if l.isIdle() {
		t.Error("isIdle should follow the newly committed document")
	}

	l.reset()
	if ok, _ := l.reached("L2", WaitCommit); ok {
		t.Error("reset should forget earlier documents")
	}
}

func TestNavigateResult(t *testing.T) {
	_, err := navigateResult("https://nope.invalid", &page.NavigateReturns{
		FrameID:   "main",
		LoaderID:  "L1",
		ErrorText: "net::ERR_NAME_NOT_RESOLVED",
	})
	if !errors.Is(err, ErrNavigationFailed) {
		t.Fatalf("navigateResult error = %v, want ErrNavigationFailed", err)
	}

	loader, err := navigateResult("https://demoqa.com/#top", &page.NavigateReturns{FrameID: "main"})
	if err != nil || loader != "" {
		t.Errorf("same-document navigation = %q, %v; want empty loader, nil", loader, err)
	}

	loader, err = navigateResult("https://demoqa.com/", &page.NavigateReturns{FrameID: "main", LoaderID: "L2"})
	if err != nil || loader != "L2" {
		t.Errorf("navigateResult = %q, %v; want L2, nil", loader, err)
	}
}
