package resolver

// MarkerAttribute tags nodes found by the in-page search so the exact node
// can be selected again later.
const MarkerAttribute = "data-pageagent-id"

// ClickableSelector lists the elements searched by the text tier.
const ClickableSelector = `button, input[type="button"], input[type="submit"], a, [role="button"], .btn`

// buildSelectorJS runs with this bound to the resolved element and returns
// a selector that matches exactly that element.
const buildSelectorJS = `function(marker, attr) {
	const el = this;
	const esc = s => (window.CSS && CSS.escape) ? CSS.escape(s) : s;
	const base = e => {
		const tag = e.tagName.toLowerCase();
		if (e.id) return '#' + esc(e.id);
		if (typeof e.className === 'string') {
			const first = e.className.split(/\s+/).filter(c => c)[0];
			if (first) return tag + '.' + esc(first);
		}
		return tag;
	};
	const nth = e => {
		let n = 1;
		for (let s = e.previousElementSibling; s; s = s.previousElementSibling) {
			if (s.tagName === e.tagName) n++;
		}
		return n;
	};
	const unique = s => {
		try {
			const m = document.querySelectorAll(s);
			return m.length === 1 && m[0] === el;
		} catch (e) {
			return false;
		}
	};

	let sel = base(el);
	if (unique(sel)) return { selector: sel, index: -1, marked: false };

	const index = Array.from(document.querySelectorAll(sel)).indexOf(el);
	let path = sel + ':nth-of-type(' + nth(el) + ')';
	if (unique(path)) return { selector: path, index, marked: false };

	for (let p = el.parentElement; p && p !== document.documentElement; p = p.parentElement) {
		path = base(p) + (p.id ? '' : ':nth-of-type(' + nth(p) + ')') + ' > ' + path;
		if (unique(path)) return { selector: path, index, marked: false };
	}

	el.setAttribute(attr, marker);
	return { selector: '[' + attr + '="' + marker + '"]', index, marked: true };
}`

// textSearchJS scans clickable elements for a case-insensitive substring of
// their text, value or aria-label and tags the first hit.
const textSearchJS = `(searchText, marker, attr, selector) => {
	const needle = searchText.toLowerCase();
	const norm = v => (v || '').toString().toLowerCase().trim();
	for (const el of document.querySelectorAll(selector)) {
		const value = typeof el.value === 'string' ? el.value : '';
		if (norm(el.textContent).includes(needle) ||
			norm(value).includes(needle) ||
			norm(el.getAttribute('aria-label')).includes(needle)) {
			el.scrollIntoView({ block: 'center' });
			el.setAttribute(attr, marker);
			return {
				found: true,
				text: (el.textContent || '').trim() || value || el.getAttribute('aria-label') || ''
			};
		}
	}
	return { found: false, text: '' };
}`
