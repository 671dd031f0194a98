package qdash

import "fmt"

// Tab is one titled view of a TabSet.
type Tab struct {
	Title string
	Plot  *Plot
}

// TabSet is an ordered set of tabs, one per metric.
type TabSet struct {
	Name string
	Tabs []*Tab
}

func NewTabSet(name string) *TabSet {
	return &TabSet{Name: name}
}

func (ts *TabSet) Add(title string, p *Plot) error {
	for _, t := range ts.Tabs {
		if t.Title == title {
			return fmt.Errorf("duplicate tab %s in %s", title, ts.Name)
		}
	}

	ts.Tabs = append(ts.Tabs, &Tab{Title: title, Plot: p})

	return nil
}

func (ts *TabSet) Len() int {
	return len(ts.Tabs)
}

func (ts *TabSet) Titles() []string {
	var titles []string
	for _, t := range ts.Tabs {
		titles = append(titles, t.Title)
	}

	return titles
}

func (ts *TabSet) Tab(title string) *Tab {
	for _, t := range ts.Tabs {
		if t.Title == title {
			return t
		}
	}

	return nil
}
