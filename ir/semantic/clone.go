package semantic

// Clone returns a deep copy of the document. Image payloads are shared: they
// are never modified in place.
func (d *Document) Clone() *Document {
	if d == nil {
		return nil
	}
	out := &Document{
		Name:            d.Name,
		Lang:            d.Lang,
		Marked:          d.Marked,
		DisplayDocTitle: d.DisplayDocTitle,
	}
	if d.Info != nil {
		info := *d.Info
		out.Info = &info
	}
	out.Pages = make([]*Page, len(d.Pages))
	for i, p := range d.Pages {
		out.Pages[i] = p.clone()
	}
	if d.StructTree != nil {
		out.StructTree = d.StructTree.clone()
	}
	out.Outlines = cloneOutlines(d.Outlines)
	return out
}

func (p *Page) clone() *Page {
	if p == nil {
		return nil
	}
	c := *p
	c.Runs = make([]TextRun, len(p.Runs))
	for i, r := range p.Runs {
		c.Runs[i] = r
		if r.Color != nil {
			col := *r.Color
			c.Runs[i].Color = &col
		}
		if r.Background != nil {
			bg := *r.Background
			c.Runs[i].Background = &bg
		}
	}
	c.Images = append([]Image(nil), p.Images...)
	c.Links = append([]LinkAnnotation(nil), p.Links...)
	c.Rules = append(c.Rules[:0:0], p.Rules...)
	return &c
}

func (t *StructureTree) clone() *StructureTree {
	c := &StructureTree{}
	for _, k := range t.K {
		c.K = append(c.K, k.clone())
	}
	if t.RoleMap != nil {
		c.RoleMap = make(RoleMap, len(t.RoleMap))
		for k, v := range t.RoleMap {
			c.RoleMap[k] = v
		}
	}
	return c
}

func (e *StructureElement) clone() *StructureElement {
	if e == nil {
		return nil
	}
	c := *e
	c.K = nil
	for _, item := range e.K {
		switch {
		case item.Element != nil:
			c.K = append(c.K, StructureItem{Element: item.Element.clone()})
		case item.Ref != nil:
			r := *item.Ref
			c.K = append(c.K, StructureItem{Ref: &r})
		}
	}
	if e.A != nil {
		c.A = make(Attributes, len(e.A))
		for k, v := range e.A {
			c.A[k] = v
		}
	}
	return &c
}

func cloneOutlines(items []OutlineItem) []OutlineItem {
	if items == nil {
		return nil
	}
	out := make([]OutlineItem, len(items))
	for i, item := range items {
		out[i] = OutlineItem{Title: item.Title, Page: item.Page, Children: cloneOutlines(item.Children)}
	}
	return out
}
