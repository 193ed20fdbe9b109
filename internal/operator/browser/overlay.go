package browser

// Overlay nodes carry one of two classes. Temporary visuals are hidden while a
// screenshot is taken; clickable highlights are drawn for the capture and removed after.
const (
	overlayClass   = "__gui_agent_overlay"
	highlightClass = "__gui_agent_highlight"
)

func highlightClickableScript() string {
	return `(() => {
		try {
			const highlightClass = '` + highlightClass + `';
			document.querySelectorAll('.' + highlightClass).forEach(n => n.remove());

			const all = document.querySelectorAll('*');
			const seen = new Set();
			const priorityTags = ['a', 'button', 'input', 'select', 'textarea'];
			const secondaryTags = ['span', 'div', 'label', 'li', 'img', 'svg'];
			let drawn = 0;

			const isVisible = (rect, style) => (
				rect.width > 0 &&
				rect.height > 0 &&
				style.display !== 'none' &&
				style.visibility !== 'hidden' &&
				style.opacity !== '0' &&
				rect.top < window.innerHeight &&
				rect.bottom > 0 &&
				rect.left < window.innerWidth &&
				rect.right > 0
			);

			const isClickable = (el, tag, style) => {
				const role = el.getAttribute('role');
				const testId = el.getAttribute('data-test-id') || el.getAttribute('data-testid') || '';
				return (
					['a', 'button', 'input', 'select', 'textarea'].includes(tag) ||
					el.onclick !== null ||
					['button', 'link', 'tab', 'menuitem', 'checkbox', 'option'].includes(role) ||
					style.cursor === 'pointer' ||
					testId.toLowerCase().includes('button')
				);
			};

			const draw = (rect) => {
				const box = document.createElement('div');
				box.className = highlightClass;
				box.style.cssText = [
					'position: fixed',
					'left: ' + rect.left + 'px',
					'top: ' + rect.top + 'px',
					'width: ' + rect.width + 'px',
					'height: ' + rect.height + 'px',
					'border: 2px dashed rgba(255, 82, 82, 0.85)',
					'border-radius: 3px',
					'pointer-events: none',
					'z-index: 2147483646',
				].join(';');
				document.body.appendChild(box);
				drawn++;
			};

			const processByPriority = (tags, maxPerTag) => {
				tags.forEach(targetTag => {
					let count = 0;
					for (let i = 0; i < all.length && count < maxPerTag; i++) {
						const el = all[i];
						const tag = el.tagName.toLowerCase();
						if (tag !== targetTag || seen.has(el)) continue;

						const rect = el.getBoundingClientRect();
						const style = window.getComputedStyle(el);
						if (!isVisible(rect, style) || !isClickable(el, tag, style)) continue;

						seen.add(el);
						count++;
						draw(rect);
					}
				});
			};

			processByPriority(priorityTags, 80);
			processByPriority(secondaryTags, 30);

			return drawn;
		} catch (e) {
			return 0;
		}
	})()`
}

func removeHighlightsScript() string {
	return `(() => {
		document.querySelectorAll('.` + highlightClass + `').forEach(n => n.remove());
	})()`
}

func hideOverlaysScript() string {
	return `(() => {
		document.querySelectorAll('.` + overlayClass + `').forEach(n => {
			n.dataset.guiAgentVisibility = n.style.visibility;
			n.style.visibility = 'hidden';
		});
	})()`
}

func restoreOverlaysScript() string {
	return `(() => {
		document.querySelectorAll('.` + overlayClass + `').forEach(n => {
			n.style.visibility = n.dataset.guiAgentVisibility || '';
			delete n.dataset.guiAgentVisibility;
		});
	})()`
}

// clickIndicatorScript takes [x, y] and draws a fading ring.
func clickIndicatorScript() string {
	return `([x, y]) => {
		const dot = document.createElement('div');
		dot.className = '` + overlayClass + `';
		dot.style.cssText = [
			'position: fixed',
			'left: ' + (x - 12) + 'px',
			'top: ' + (y - 12) + 'px',
			'width: 24px',
			'height: 24px',
			'border: 3px solid rgba(33, 150, 243, 0.9)',
			'border-radius: 50%',
			'pointer-events: none',
			'z-index: 2147483647',
			'transition: opacity 0.6s ease-out',
		].join(';');
		document.body.appendChild(dot);
		setTimeout(() => { dot.style.opacity = '0'; }, 600);
		setTimeout(() => dot.remove(), 1300);
	}`
}

// dragIndicatorScript takes [x1, y1, x2, y2] and draws the drag path.
func dragIndicatorScript() string {
	return `([x1, y1, x2, y2]) => {
		const ns = 'http://www.w3.org/2000/svg';
		const svg = document.createElementNS(ns, 'svg');
		svg.setAttribute('class', '` + overlayClass + `');
		svg.style.cssText = 'position: fixed; left: 0; top: 0; width: 100vw; height: 100vh; pointer-events: none; z-index: 2147483647';
		const line = document.createElementNS(ns, 'line');
		line.setAttribute('x1', x1);
		line.setAttribute('y1', y1);
		line.setAttribute('x2', x2);
		line.setAttribute('y2', y2);
		line.setAttribute('stroke', 'rgba(33, 150, 243, 0.9)');
		line.setAttribute('stroke-width', '3');
		line.setAttribute('stroke-dasharray', '6 4');
		svg.appendChild(line);
		document.body.appendChild(svg);
		setTimeout(() => svg.remove(), 1500);
	}`
}

// actionInfoScript takes the action text and shows it in a corner banner.
func actionInfoScript() string {
	return `(text) => {
		const id = '__gui_agent_action_info';
		let banner = document.getElementById(id);
		if (!banner) {
			banner = document.createElement('div');
			banner.id = id;
			banner.className = '` + overlayClass + `';
			banner.style.cssText = [
				'position: fixed',
				'right: 16px',
				'bottom: 16px',
				'max-width: 40vw',
				'padding: 8px 12px',
				'background: rgba(0, 0, 0, 0.75)',
				'color: #fff',
				'font: 13px/1.4 monospace',
				'border-radius: 6px',
				'pointer-events: none',
				'z-index: 2147483647',
			].join(';');
			document.body.appendChild(banner);
		}
		banner.textContent = text;
		clearTimeout(banner.__hideTimer);
		banner.__hideTimer = setTimeout(() => banner.remove(), 3000);
	}`
}

func waterFlowScript(show bool) string {
	if !show {
		return `(() => {
			const n = document.getElementById('__gui_agent_water_flow');
			if (n) n.remove();
		})()`
	}

	return `(() => {
		if (document.getElementById('__gui_agent_water_flow')) return;
		const frame = document.createElement('div');
		frame.id = '__gui_agent_water_flow';
		frame.className = '` + overlayClass + `';
		frame.style.cssText = [
			'position: fixed',
			'inset: 0',
			'pointer-events: none',
			'z-index: 2147483645',
			'box-shadow: inset 0 0 24px 6px rgba(33, 150, 243, 0.55)',
		].join(';');
		document.body.appendChild(frame);
	})()`
}
