package pagedata

import "net/url"

// Fallback returns the canned snapshot used when a page could not be
// analysed. The product frontend on localhost:3000 gets a description of
// its known layout; other local pages and remote sites get a short notice.
func Fallback(rawURL string) *Snapshot {
	s := newSnapshot(rawURL)

	u, err := url.Parse(rawURL)
	if err == nil && u.Hostname() == "localhost" {
		if u.Port() == "3000" {
			s.Title = "Bloop.ai - AI-платформа для IT-стартапов"
			s.MetaDescription = "Создайте ИИ-ассистента для вашего IT-стартапа за 5 минут"
			s.Headings = []string{"Bloop.ai", "Dashboard", "Создать ИИ-ассистента", "Ваши агенты"}
			s.Links = []Link{
				{Text: "Создать ИИ-ассистента", Href: "/onboarding"},
				{Text: "Dashboard", Href: "/dashboard"},
				{Text: "Тест Vision AI", Href: "/visual-test"},
			}
			s.Buttons = []string{"Создать ИИ-ассистента", "Выйти", "Получить код виджета"}
			s.Text = "Добро пожаловать в Bloop.ai - платформу для создания ИИ-ассистентов для IT-стартапов. " +
				"Здесь вы можете создавать, настраивать и управлять своими AI-агентами для упрощения онбординга клиентов."
			return s
		}

		s.Title = "Локальное приложение"
		s.Text = "Вы находитесь на локальной странице разработки. Анализ содержимого временно недоступен из-за технических ограничений."
		return s
	}

	s.Title = "Анализ временно недоступен"
	s.Text = "Извините, анализ страницы временно недоступен из-за технических проблем. Я все равно могу помочь вам с вопросами о продукте."
	return s
}
