package agent

// SetName returns an UpdateSetter that sets the agent's name.
func SetName(name string) UpdateSetter {
	return func(a *Agent) error {
		if name == "" {
			return ErrInvalidAgentName
		}
		a.Name = name
		return nil
	}
}

// SetDescription returns an UpdateSetter that sets the agent's description.
func SetDescription(description string) UpdateSetter {
	return func(a *Agent) error {
		a.Description = description
		return nil
	}
}

// SetWebsiteURL returns an UpdateSetter that sets the site the widget lives on.
func SetWebsiteURL(url string) UpdateSetter {
	return func(a *Agent) error {
		a.WebsiteURL = url
		return nil
	}
}

// SetSystemPrompt returns an UpdateSetter that sets the agent's system prompt.
func SetSystemPrompt(prompt string) UpdateSetter {
	return func(a *Agent) error {
		a.SystemPrompt = prompt
		return nil
	}
}

// SetResponseStyle returns an UpdateSetter that sets the agent's response style.
func SetResponseStyle(style ResponseStyle) UpdateSetter {
	return func(a *Agent) error {
		if !style.IsValid() {
			return ErrInvalidResponseStyle
		}
		a.ResponseStyle = style
		return nil
	}
}

// SetKnowledgeBase returns an UpdateSetter that replaces the knowledge base text.
func SetKnowledgeBase(kb string) UpdateSetter {
	return func(a *Agent) error {
		a.KnowledgeBase = kb
		return nil
	}
}

// SetActive returns an UpdateSetter that sets the agent's active status.
func SetActive(active bool) UpdateSetter {
	return func(a *Agent) error {
		a.IsActive = active
		return nil
	}
}
