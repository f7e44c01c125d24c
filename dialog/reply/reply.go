// Package reply composes every user-facing text the dialog emits.
package reply

import (
	"fmt"
	"strings"

	contractx "github.com/ordertalk/ordertalk/dialog/contract"
	statex "github.com/ordertalk/ordertalk/dialog/state"
)

const (
	Greeting = "Hello, welcome to the order assistant. Please provide your name to proceed with the order."

	PromptPhone   = "Please provide your 10-digit phone number."
	PromptAddress = "Please provide your address."
	PromptEmail   = "Please provide your email address."

	YesNoReprompt = "Please answer yes or no: do you want to register as a new customer?"

	DeclinedRegistration = "No problem. An account is needed to place orders, so tell me your name again whenever you want to start."

	Menu = "How can I assist you with your order today? (New Order, Modify Order, Delete Products, View Summary, Confirm Order, Customer Details, Exit)"

	EmptyCart = "Your cart is empty."

	Closing = "Thank you for chatting with me. Goodbye!"

	Unrecognized = "I'm sorry, I didn't understand your request. Can you please rephrase?"

	SomethingWrong = "Sorry, something went wrong. Please try again."
)

func ConfirmRegister(name string) string {
	return fmt.Sprintf("Customer %q not found. Do you want to register as a new customer? (yes/no)", name)
}

func Registered(name string) string {
	return fmt.Sprintf("Thanks %s, your details are saved. %s", name, Menu)
}

func WelcomeBack(name string) string {
	return fmt.Sprintf("Welcome back, %s! %s", name, Menu)
}

func PromptFor(f statex.Field) string {
	switch f {
	case statex.FieldPhone:
		return PromptPhone
	case statex.FieldAddress:
		return PromptAddress
	case statex.FieldEmail:
		return PromptEmail
	default:
		return "Please provide your name."
	}
}

func MissingFieldsIntro(fields []statex.Field) string {
	names := make([]string, 0, len(fields))
	for _, f := range fields {
		names = append(names, strings.ReplaceAll(string(f), "_", " "))
	}
	return fmt.Sprintf("I still need your %s before we continue. %s",
		strings.Join(names, ", "), PromptFor(fields[0]))
}

func Summary(lines []contractx.CartLine) string {
	if len(lines) == 0 {
		return EmptyCart
	}
	var b strings.Builder
	b.WriteString("Here is your current order:\n")
	for _, line := range lines {
		fmt.Fprintf(&b, "- %s x%d\n", line.ProductName, line.Quantity)
	}
	return strings.TrimRight(b.String(), "\n")
}

func Added(lines []contractx.CartLine) string {
	if len(lines) == 0 {
		return Unrecognized
	}
	parts := make([]string, 0, len(lines))
	for _, line := range lines {
		parts = append(parts, fmt.Sprintf("%d x %s", line.Quantity, line.ProductName))
	}
	return fmt.Sprintf("Added %s to your cart.", strings.Join(parts, ", "))
}

func Modified(updated []contractx.CartLine, skipped []string) string {
	var parts []string
	for _, line := range updated {
		parts = append(parts, fmt.Sprintf("%s is now x%d", line.ProductName, line.Quantity))
	}
	msg := "Nothing was changed."
	if len(parts) > 0 {
		msg = fmt.Sprintf("Updated your order: %s.", strings.Join(parts, ", "))
	}
	if len(skipped) > 0 {
		msg += fmt.Sprintf(" I could not update %s because no quantity was given.", strings.Join(skipped, ", "))
	}
	return msg
}

func Removed(names []string) string {
	if len(names) == 0 {
		return "Nothing was removed."
	}
	return fmt.Sprintf("Removed %s from your cart.", strings.Join(names, ", "))
}

func Confirmed(reference string, lines []contractx.CartLine) string {
	return fmt.Sprintf("Your order is confirmed (reference %s). %s", reference, Summary(lines))
}

func CustomerReport(c *contractx.Customer) string {
	return fmt.Sprintf("Here are your details:\n- name: %s\n- phone number: %s\n- address: %s\n- email: %s",
		c.Name, c.PhoneNumber, c.Address, c.Email)
}
