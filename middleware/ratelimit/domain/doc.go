// Package domain define os contratos da cota por cliente (janela deslizante),
// do throttle por host e do limite de concorrência.
//
// Nada aqui depende de net/http ou de uma implementação concreta; os testes
// de application usam fakes destes contratos.
package domain
